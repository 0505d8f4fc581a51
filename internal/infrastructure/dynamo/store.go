package dynamo

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/logbook-api/internal/config"
)

// Store keeps codes, accounts and profiles in DynamoDB. It implements both the
// account and the code side of the verification flow.
type Store struct {
	client API
	tables config.DynamoTables
}

func NewStore(client API, tables config.DynamoTables) *Store {
	return &Store{client: client, tables: tables}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

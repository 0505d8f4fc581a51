package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/logbook-api/internal/domain"
	"github.com/logbook-api/internal/pkg/id"
)

// InsertCode writes a new code row. code_id is a ULID, so rows for one email sort by creation time.
func (s *Store) InsertCode(ctx context.Context, c *domain.VerificationCode) error {
	if c.ID == "" {
		c.ID = id.NewAt(c.CreatedAt)
	}
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal code: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.EmailCodes),
		Item:      item,
	})
	return err
}

// FindActiveCode walks the email's rows newest first and returns the first unused match.
func (s *Store) FindActiveCode(ctx context.Context, email, code string) (*domain.VerificationCode, error) {
	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.EmailCodes),
		KeyConditionExpression: aws.String("#e = :e"),
		FilterExpression:       aws.String("#c = :c AND #u = :f"),
		ExpressionAttributeNames: map[string]string{
			"#e": "email",
			"#c": "code",
			"#u": "used",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
			":c": &types.AttributeValueMemberS{Value: code},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
		ScanIndexForward: aws.Bool(false),
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if len(out.Items) == 0 {
			continue
		}
		var c domain.VerificationCode
		if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
			return nil, fmt.Errorf("unmarshal code: %w", err)
		}
		return &c, nil
	}
	return nil, fmt.Errorf("code for %s: %w", email, domain.ErrNotFound)
}

// MarkCodeUsed flips used to true only while it is still false.
func (s *Store) MarkCodeUsed(ctx context.Context, c *domain.VerificationCode) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tables.EmailCodes),
		Key:                 compositeKey("email", c.Email, "code_id", c.ID),
		UpdateExpression:    aws.String("SET #u = :t"),
		ConditionExpression: aws.String("attribute_exists(code_id) AND #u = :f"),
		ExpressionAttributeNames: map[string]string{
			"#u": "used",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("code %s: %w", c.ID, domain.ErrConflict)
	}
	if err != nil {
		return err
	}
	c.Used = true
	return nil
}

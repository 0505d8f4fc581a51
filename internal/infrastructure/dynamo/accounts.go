package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/logbook-api/internal/domain"
	"github.com/logbook-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Accounts),
		Key:       strKey("email", email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &a, nil
}

// CreateAccount stores a new account with a bcrypt password hash. The put is
// conditional on the email being free, so a concurrent signup gets ErrConflict.
func (s *Store) CreateAccount(ctx context.Context, email, password string) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &domain.Account{
		ID:           id.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return nil, fmt.Errorf("marshal account: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Accounts),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("account %s: %w", email, domain.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpsertProfile sets plan, trial end and updated_at, keeping created_at from the first write.
func (s *Store) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"plan":         p.Plan,
		"trial_end_at": p.TrialEndAt,
		"updated_at":   p.UpdatedAt,
	})
	if err != nil {
		return err
	}
	now, err := attributevalue.Marshal(p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("marshal timestamp: %w", err)
	}
	ue.Names["#created"] = "created_at"
	ue.Values[":now"] = now

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tables.Profiles),
		Key:                       strKey("account_id", p.AccountID),
		UpdateExpression:          aws.String(ue.Expr + ", #created = if_not_exists(#created, :now)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

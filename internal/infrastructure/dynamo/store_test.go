package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/logbook-api/internal/config"
	"github.com/logbook-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.CreateTableOutput)
	return out, args.Error(1)
}

var testTables = config.DynamoTables{EmailCodes: "email_codes", Accounts: "accounts", Profiles: "profiles"}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func TestFindAccountByEmail_Missing_ReturnsNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewStore(api, testTables).FindAccountByEmail(context.Background(), "a@example.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFindAccountByEmail_Found(t *testing.T) {
	item, err := attributevalue.MarshalMap(domain.Account{ID: "acct-1", Email: "a@example.com"})
	require.NoError(t, err)
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		k, ok := in.Key["email"].(*types.AttributeValueMemberS)
		return *in.TableName == "accounts" && ok && k.Value == "a@example.com"
	})).Return(&dynamodb.GetItemOutput{Item: item}, nil)

	a, err := NewStore(api, testTables).FindAccountByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", a.ID)
}

func TestCreateAccount_ConditionalPutWithHashedPassword(t *testing.T) {
	api := &mockAPI{}
	var put *dynamodb.PutItemInput
	api.On("PutItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { put = args.Get(1).(*dynamodb.PutItemInput) }).
		Return(&dynamodb.PutItemOutput{}, nil)

	a, err := NewStore(api, testTables).CreateAccount(context.Background(), "a@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	require.NotNil(t, put)
	assert.Equal(t, "attribute_not_exists(email)", *put.ConditionExpression)

	var stored domain.Account
	require.NoError(t, attributevalue.UnmarshalMap(put.Item, &stored))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")))
}

func TestCreateAccount_EmailTaken_ReturnsConflict(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, conditionFailed())

	_, err := NewStore(api, testTables).CreateAccount(context.Background(), "a@example.com", "x")
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestUpsertProfile_KeepsCreatedAt(t *testing.T) {
	api := &mockAPI{}
	var upd *dynamodb.UpdateItemInput
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { upd = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	err := NewStore(api, testTables).UpsertProfile(context.Background(), &domain.Profile{
		AccountID: "acct-1", Plan: "pro", TrialEndAt: now.Add(14 * 24 * time.Hour), UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NotNil(t, upd)
	assert.Equal(t, "profiles", *upd.TableName)
	assert.Contains(t, *upd.UpdateExpression, "#created = if_not_exists(#created, :now)")
	assert.Equal(t, "created_at", upd.ExpressionAttributeNames["#created"])
	assert.Equal(t, "plan", upd.ExpressionAttributeNames["#f0"])
}

func TestInsertCode_AssignsSortableID(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return *in.TableName == "email_codes"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	c := &domain.VerificationCode{Email: "a@example.com", Code: "482913", CreatedAt: time.Now().UTC()}
	require.NoError(t, NewStore(api, testTables).InsertCode(context.Background(), c))
	assert.Len(t, c.ID, 26)
	api.AssertExpectations(t)
}

func TestFindActiveCode_FollowsPagesUntilMatch(t *testing.T) {
	row, err := attributevalue.MarshalMap(domain.VerificationCode{ID: "01J0", Email: "a@example.com", Code: "482913"})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{
		LastEvaluatedKey: compositeKey("email", "a@example.com", "code_id", "01J9"),
	}, nil).Once()
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil && !*in.ScanIndexForward
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{row}}, nil).Once()

	c, err := NewStore(api, testTables).FindActiveCode(context.Background(), "a@example.com", "482913")
	require.NoError(t, err)
	assert.Equal(t, "01J0", c.ID)
	api.AssertExpectations(t)
}

func TestFindActiveCode_NoMatch_ReturnsNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := NewStore(api, testTables).FindActiveCode(context.Background(), "a@example.com", "482913")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMarkCodeUsed_Conditional(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return *in.ConditionExpression == "attribute_exists(code_id) AND #u = :f"
	})).Return(&dynamodb.UpdateItemOutput{}, nil).Once()
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, conditionFailed()).Once()

	s := NewStore(api, testTables)
	c := &domain.VerificationCode{ID: "01J0", Email: "a@example.com"}
	require.NoError(t, s.MarkCodeUsed(context.Background(), c))
	assert.True(t, c.Used)

	err := s.MarkCodeUsed(context.Background(), &domain.VerificationCode{ID: "01J0", Email: "a@example.com"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestBootstrap_ExistingTablesAreIgnored(t *testing.T) {
	api := &mockAPI{}
	api.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return *in.TableName == "email_codes"
	})).Return(nil, &types.ResourceInUseException{Message: aws.String("exists")})
	api.On("CreateTable", mock.Anything, mock.Anything).Return(&dynamodb.CreateTableOutput{}, nil)

	Bootstrap(context.Background(), api, testTables, zap.NewNop())
	api.AssertNumberOfCalls(t, "CreateTable", 3)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/jun/gophtodo/internal/apperr"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore implements ItemStore on a DynamoDB table.
type DynamoStore[T any] struct {
	client DynamoAPI
	schema Schema
}

// NewDynamoStore creates a DynamoStore for the given table schema.
func NewDynamoStore[T any](client DynamoAPI, schema Schema) *DynamoStore[T] {
	return &DynamoStore[T]{client: client, schema: schema}
}

func (s *DynamoStore[T]) ListByOwner(ctx context.Context, userID string) ([]T, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.schema.Table),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": s.schema.PartitionKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userID},
		},
	}

	items := []T{}
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("query "+s.schema.Table, err)
		}
		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("%w: failed to unmarshal items: %w", apperr.ErrStore, err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

func (s *DynamoStore[T]) Get(ctx context.Context, userID, itemID string) (T, error) {
	var item T
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.schema.Table),
		Key:            s.schema.key(userID, itemID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return item, classify("get "+s.schema.Table, err)
	}
	if out.Item == nil {
		return item, fmt.Errorf("get %s %q: %w", s.schema.Table, itemID, apperr.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return item, fmt.Errorf("%w: failed to unmarshal item: %w", apperr.ErrStore, err)
	}
	return item, nil
}

func (s *DynamoStore[T]) Create(ctx context.Context, item T) (T, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return item, fmt.Errorf("failed to marshal item: %w", err)
	}
	if _, _, err := s.schema.keyOf(av); err != nil {
		return item, err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.schema.Table),
		Item:      av,
	})
	if err != nil {
		return item, classify("put "+s.schema.Table, err)
	}
	return item, nil
}

func (s *DynamoStore[T]) Update(ctx context.Context, userID, itemID string, patch any) error {
	set, remove, err := s.schema.patchAttributes(patch)
	if err != nil {
		return err
	}
	return s.conditionalUpdate(ctx, "update", userID, itemID, set, remove)
}

func (s *DynamoStore[T]) SetAttachmentURL(ctx context.Context, userID, itemID, url string) error {
	set := map[string]types.AttributeValue{
		AttachmentURLAttribute: &types.AttributeValueMemberS{Value: url},
	}
	return s.conditionalUpdate(ctx, "set attachment", userID, itemID, set, nil)
}

func (s *DynamoStore[T]) Delete(ctx context.Context, userID, itemID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.schema.Table),
		Key:                 s.schema.key(userID, itemID),
		ConditionExpression: aws.String("attribute_exists(#sk)"),
		ExpressionAttributeNames: map[string]string{
			"#sk": s.schema.SortKey,
		},
	})
	if err != nil {
		return classify("delete "+s.schema.Table, err)
	}
	return nil
}

// conditionalUpdate issues an UpdateItem that only succeeds when the item
// already exists, so an update can never materialize a new item.
func (s *DynamoStore[T]) conditionalUpdate(ctx context.Context, op, userID, itemID string, set map[string]types.AttributeValue, remove []string) error {
	names := map[string]string{"#sk": s.schema.SortKey}
	values := make(map[string]types.AttributeValue, len(set))

	var setClauses, removeClauses []string
	i := 0
	// Walk the declared order so the expression is deterministic.
	for _, name := range append(append([]string{}, s.schema.Mutable...), AttachmentURLAttribute) {
		v, ok := set[name]
		if !ok {
			continue
		}
		ph := fmt.Sprintf("a%d", i)
		i++
		names["#"+ph] = name
		values[":"+ph] = v
		setClauses = append(setClauses, fmt.Sprintf("#%s = :%s", ph, ph))
	}
	for _, name := range remove {
		ph := fmt.Sprintf("a%d", i)
		i++
		names["#"+ph] = name
		removeClauses = append(removeClauses, "#"+ph)
	}

	var expr []string
	if len(setClauses) > 0 {
		expr = append(expr, "SET "+strings.Join(setClauses, ", "))
	}
	if len(removeClauses) > 0 {
		expr = append(expr, "REMOVE "+strings.Join(removeClauses, ", "))
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.schema.Table),
		Key:                      s.schema.key(userID, itemID),
		UpdateExpression:         aws.String(strings.Join(expr, " ")),
		ConditionExpression:      aws.String("attribute_exists(#sk)"),
		ExpressionAttributeNames: names,
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return classify(op+" "+s.schema.Table, err)
	}
	return nil
}

// classify maps a failed conditional check to apperr.ErrNotFound and every
// other DynamoDB failure to apperr.ErrStore.
func classify(op string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %s: %w", apperr.ErrStore, op, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%w: %s: %w", apperr.ErrStore, op, err)
}

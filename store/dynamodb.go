package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDB.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDB records completed uploads in a DynamoDB table whose partition key is
// the string attribute "uploadId".
type DynamoDB struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoDB creates a DynamoDB store writing to table.
func NewDynamoDB(client DynamoDBAPI, table string) *DynamoDB {
	return &DynamoDB{client: client, table: table}
}

// RecordUpload puts the record unless an item with the same upload ID exists.
func (d *DynamoDB) RecordUpload(ctx context.Context, record *uploadtypes.UploadRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal upload record: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(uploadId)"),
	})
	if err != nil {
		var exists *types.ConditionalCheckFailedException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to record upload %s: %w", record.UploadID, err)
	}
	return nil
}

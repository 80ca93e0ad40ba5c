/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// dryRunGateway neutralizes every mutating store call while delegating reads
// to the wrapped client. Debug-mode repositories are built on top of it so
// the operation bodies stay branch-free: a save or batch delete runs its
// normal path and simply performs no store writes.
type dryRunGateway struct {
	inner  DynamoDBAPI
	logger *zap.Logger
}

func (g *dryRunGateway) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return g.inner.GetItem(ctx, params, optFns...)
}

func (g *dryRunGateway) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return g.inner.Query(ctx, params, optFns...)
}

func (g *dryRunGateway) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return g.inner.Scan(ctx, params, optFns...)
}

func (g *dryRunGateway) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return g.inner.DescribeTable(ctx, params, optFns...)
}

func (g *dryRunGateway) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	g.logger.Info("debug mode: skipping put",
		zap.String("table", aws.ToString(params.TableName)))
	return &dynamodb.PutItemOutput{}, nil
}

func (g *dryRunGateway) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	g.logger.Info("debug mode: skipping update",
		zap.String("table", aws.ToString(params.TableName)))
	return &dynamodb.UpdateItemOutput{}, nil
}

func (g *dryRunGateway) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	g.logger.Info("debug mode: skipping delete",
		zap.String("table", aws.ToString(params.TableName)))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (g *dryRunGateway) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	total := 0
	for _, reqs := range params.RequestItems {
		total += len(reqs)
	}
	g.logger.Info("debug mode: skipping batch write",
		zap.Int("requests", total))
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (g *dryRunGateway) BatchExecuteStatement(ctx context.Context, params *dynamodb.BatchExecuteStatementInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchExecuteStatementOutput, error) {
	g.logger.Info("debug mode: skipping batch statement",
		zap.Int("statements", len(params.Statements)))
	return &dynamodb.BatchExecuteStatementOutput{}, nil
}

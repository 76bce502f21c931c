package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

type DynamoDBAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// text columns stored as S; every other non-empty column must be numeric.
var textCols = map[string]bool{
	dataset.PlayerCol:    true,
	dataset.FirstNameCol: true,
	dataset.TeamCol:      true,
	dataset.PositionCol:  true,
	"Nation":             true,
}

// SortKey is the item sort key for a player on a team.
func SortKey(player, team string) string { return player + "#" + team }

// PutPlayerRows writes one item per results.csv row: PK=Season (S),
// SK=Player#Team (S). N/a cells are omitted.
func PutPlayerRows(ctx context.Context, ddb DynamoDBAPI, table, season, runID string, f *frame.Frame) error {
	if f == nil || f.Len() == 0 {
		return nil
	}
	const maxBatch = 25
	now := strconv.FormatInt(time.Now().Unix(), 10)

	for i := 0; i < f.Len(); i += maxBatch {
		end := min(i+maxBatch, f.Len())

		reqs := make([]types.WriteRequest, 0, end-i)
		for r := i; r < end; r++ {
			item := playerItem(f, r, season, runID, now)
			if item == nil {
				continue
			}
			reqs = append(reqs, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}
		if len(reqs) == 0 {
			continue
		}
		if err := batchWriteWithRetry(ctx, ddb, table, reqs); err != nil {
			return fmt.Errorf("batch write player rows: %w", err)
		}
	}
	return nil
}

func playerItem(f *frame.Frame, r int, season, runID, now string) map[string]types.AttributeValue {
	player := strings.TrimSpace(f.Get(r, dataset.PlayerCol))
	team := strings.TrimSpace(f.Get(r, dataset.TeamCol))
	if player == "" || team == "" || team == "N/a" {
		return nil
	}
	item := map[string]types.AttributeValue{
		"Season":    &types.AttributeValueMemberS{Value: season},                // PK
		"SK":        &types.AttributeValueMemberS{Value: SortKey(player, team)}, // SK
		"RunID":     &types.AttributeValueMemberS{Value: runID},
		"UpdatedAt": &types.AttributeValueMemberN{Value: now},
	}
	for c, col := range f.Header {
		if _, dup := item[col]; dup || col == "Season" || col == "SK" {
			continue
		}
		raw := strings.TrimSpace(f.Rows[r][c])
		if raw == "" || raw == "N/a" {
			continue
		}
		if textCols[col] {
			item[col] = &types.AttributeValueMemberS{Value: raw}
			continue
		}
		v := frame.ParseFloat(raw)
		if dataset.IsPercent(col) {
			v = dataset.CleanPercent(raw)
		}
		if math.IsNaN(v) {
			item[col] = &types.AttributeValueMemberS{Value: raw}
			continue
		}
		item[col] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'f', -1, 64)}
	}
	return item
}

func batchWriteWithRetry(ctx context.Context, ddb DynamoDBAPI, table string, reqs []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{table: reqs},
	}
	const maxAttempts = 6
	backoff := 120 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := ddb.BatchWriteItem(ctx, input)
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		input.RequestItems = out.UnprocessedItems
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff += 120 * time.Millisecond
		}
	}
	return fmt.Errorf("unprocessed items remained after retries for table %s", table)
}

// UpdateTransferValue sets TransferValueM on an existing player item. A nil
// value removes the attribute.
func UpdateTransferValue(ctx context.Context, ddb DynamoDBAPI, table, season, player, team string, value *float64) error {
	key := map[string]types.AttributeValue{
		"Season": &types.AttributeValueMemberS{Value: season},                // PK
		"SK":     &types.AttributeValueMemberS{Value: SortKey(player, team)}, // SK
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	vals := map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberN{Value: now},
	}
	expr := "SET UpdatedAt=:now REMOVE TransferValueM"
	if value != nil {
		vals[":v"] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(*value, 'f', 2, 64)}
		expr = "SET TransferValueM=:v, UpdatedAt=:now"
	}

	_, err := ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(table),
		Key:              key,
		UpdateExpression: aws.String(expr),
		// avoid creating new items accidentally
		ConditionExpression:       aws.String("attribute_exists(Season) AND attribute_exists(SK)"),
		ExpressionAttributeValues: vals,
	})
	return err
}

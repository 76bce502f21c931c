package store

import (
	"context"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tyler180/epl-player-stats/internal/dataset"
)

type DynamoDBReadAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// StoredPlayer is a player item read back from the table.
type StoredPlayer struct {
	Player        string
	Team          string
	Position      string
	RunID         string
	Stats         map[string]float64
	TransferValue *float64
}

// LoadSeason reads every player item under PK=season, following pagination.
// Results are sorted by team, then player.
func LoadSeason(ctx context.Context, ddb DynamoDBReadAPI, table, season string) ([]StoredPlayer, error) {
	var out []StoredPlayer
	var lastKey map[string]types.AttributeValue
	for {
		res, err := ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(table),
			KeyConditionExpression:    aws.String("#S = :s"),
			ExpressionAttributeNames:  map[string]string{"#S": "Season"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: season}},
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, err
		}
		for _, it := range res.Items {
			out = append(out, fromItem(it))
		}
		if len(res.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = res.LastEvaluatedKey
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team < out[j].Team
		}
		return out[i].Player < out[j].Player
	})
	return out, nil
}

func fromItem(it map[string]types.AttributeValue) StoredPlayer {
	p := StoredPlayer{
		Player:   getStr(it, dataset.PlayerCol),
		Team:     getStr(it, dataset.TeamCol),
		Position: getStr(it, dataset.PositionCol),
		RunID:    getStr(it, "RunID"),
		Stats:    map[string]float64{},
	}
	for k, v := range it {
		n, ok := v.(*types.AttributeValueMemberN)
		if !ok || k == "UpdatedAt" {
			continue
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			continue
		}
		if k == "TransferValueM" {
			p.TransferValue = &f
			continue
		}
		p.Stats[k] = f
	}
	return p
}

func getStr(m map[string]types.AttributeValue, key string) string {
	if v, ok := m[key]; ok {
		if s, ok2 := v.(*types.AttributeValueMemberS); ok2 {
			return s.Value
		}
	}
	return ""
}

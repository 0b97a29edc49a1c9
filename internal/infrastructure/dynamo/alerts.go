package dynamo

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sos-api/internal/domain"
	"github.com/sos-api/internal/pkg/geo"
)

// AlertRepo provides typed DynamoDB operations for the SOS alerts table.
type AlertRepo struct {
	client    API
	tableName string
}

func NewAlertRepo(client API, tableName string) *AlertRepo {
	return &AlertRepo{client: client, tableName: tableName}
}

// Ping checks the table is reachable with a point read of a key that is
// never written. A missing item is the expected answer.
func (r *AlertRepo) Ping(ctx context.Context) error {
	if _, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  strKey("alert_id", "_health"),
		ProjectionExpression: aws.String("alert_id"),
	}); err != nil {
		return fmt.Errorf("ping %s: %w", r.tableName, err)
	}
	return nil
}

func (r *AlertRepo) Put(ctx context.Context, a *domain.Alert) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AlertRepo) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("alert_id", alertID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("alert not found: %w", domain.ErrNotFound)
	}
	var a domain.Alert
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SetLedger overwrites the alert's notification ledger in a single write.
// Entries recorded since the previous write are discarded.
func (r *AlertRepo) SetLedger(ctx context.Context, alertID string, ledger []domain.NotificationResult) error {
	if ledger == nil {
		ledger = []domain.NotificationResult{}
	}
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldNotifiedContacts: ledger,
		fieldUpdatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("alert_id", alertID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(alert_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("alert not found: %w", domain.ErrNotFound)
	}
	return err
}

// Transition moves an active alert to status, writing extra fields in the
// same update. The write is conditional on the stored status still being
// active, so a concurrent transition loses with ErrInvalidTransition.
func (r *AlertRepo) Transition(ctx context.Context, alertID string, status domain.AlertStatus, fields map[string]interface{}) error {
	updates := map[string]interface{}{
		fieldStatus:    status,
		fieldUpdatedAt: time.Now().UTC(),
	}
	for k, v := range fields {
		updates[k] = v
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#cur"] = fieldStatus
	ue.Values[":active"] = &types.AttributeValueMemberS{Value: string(domain.AlertActive)}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("alert_id", alertID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(alert_id) AND #cur = :active"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("alert %s is no longer active: %w", alertID, domain.ErrInvalidTransition)
	}
	return err
}

// ListActive returns active alerts, newest first.
func (r *AlertRepo) ListActive(ctx context.Context) ([]domain.Alert, error) {
	return r.queryNewestFirst(ctx, indexStatusCreated, fieldStatus, string(domain.AlertActive))
}

// ListByUser returns every alert raised by userID, newest first.
func (r *AlertRepo) ListByUser(ctx context.Context, userID string) ([]domain.Alert, error) {
	return r.queryNewestFirst(ctx, indexUserCreated, "user_id", userID)
}

// ListActiveWithin returns active alerts whose location lies within
// radiusMeters of (lat, lon), newest first. DynamoDB has no native geo
// index, so the radius is applied to the active set after the query.
func (r *AlertRepo) ListActiveWithin(ctx context.Context, lat, lon, radiusMeters float64) ([]domain.Alert, error) {
	active, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	nearby := make([]domain.Alert, 0, len(active))
	for _, a := range active {
		if geo.WithinRadius(lat, lon, a.Location.Latitude, a.Location.Longitude, radiusMeters) {
			nearby = append(nearby, a)
		}
	}
	return nearby, nil
}

// queryNewestFirst reads every page of the index and orders the result by
// CreatedAt, newest first. The index range key is an RFC3339Nano string,
// which drops trailing zero fractions, so its text order is not time order
// within a second.
func (r *AlertRepo) queryNewestFirst(ctx context.Context, index, attr, value string) ([]domain.Alert, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#k = :v"),
		ExpressionAttributeNames:  map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	alerts := make([]domain.Alert, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &alerts); err != nil {
		return nil, err
	}
	slices.SortStableFunc(alerts, func(a, b domain.Alert) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.AlertID, a.AlertID)
	})
	return alerts, nil
}

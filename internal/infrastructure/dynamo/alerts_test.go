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
	"github.com/sos-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records requests and replays canned responses in order.
type fakeAPI struct {
	getOut     *dynamodb.GetItemOutput
	getErr     error
	updateErr  error
	queryPages []*dynamodb.QueryOutput

	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	queries []dynamodb.QueryInput
}

func (f *fakeAPI) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, *in)
	if len(f.queryPages) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	page := f.queryPages[0]
	f.queryPages = f.queryPages[1:]
	return page, nil
}

func alertItem(t *testing.T, a domain.Alert) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(a)
	require.NoError(t, err)
	return item
}

func TestAlertRepo_Get_NotFound(t *testing.T) {
	repo := NewAlertRepo(&fakeAPI{}, "alerts")
	_, err := repo.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAlertRepo_PutThenGet_RoundTripsLedger(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := domain.Alert{
		AlertID: "a1", UserID: "u1", Status: domain.AlertActive,
		Location: domain.Location{Latitude: 12.9, Longitude: 77.6},
		NotifiedContacts: []domain.NotificationResult{
			{Phone: "+919876543210", Response: domain.ResponsePending, Status: domain.DeliverySent, NotifiedAt: now},
		},
		CreatedAt: now,
	}
	api := &fakeAPI{getOut: &dynamodb.GetItemOutput{Item: alertItem(t, a)}}
	repo := NewAlertRepo(api, "alerts")

	got, err := repo.Get(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, got.NotifiedContacts, 1)
	assert.Equal(t, domain.DeliverySent, got.NotifiedContacts[0].Status)
	assert.Nil(t, got.ResolvedAt)
}

func TestAlertRepo_SetLedger_NilWritesEmptyList(t *testing.T) {
	api := &fakeAPI{}
	repo := NewAlertRepo(api, "alerts")

	require.NoError(t, repo.SetLedger(context.Background(), "a1", nil))
	require.Len(t, api.updates, 1)
	in := api.updates[0]
	assert.Equal(t, "attribute_exists(alert_id)", aws.ToString(in.ConditionExpression))

	var found bool
	for ph, name := range in.ExpressionAttributeNames {
		if name != fieldNotifiedContacts {
			continue
		}
		found = true
		valKey := ":v" + ph[2:]
		l, ok := in.ExpressionAttributeValues[valKey].(*types.AttributeValueMemberL)
		require.True(t, ok)
		assert.Empty(t, l.Value)
	}
	assert.True(t, found)
}

func TestAlertRepo_SetLedger_MissingAlert(t *testing.T) {
	api := &fakeAPI{updateErr: &types.ConditionalCheckFailedException{}}
	err := NewAlertRepo(api, "alerts").SetLedger(context.Background(), "a1", nil)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAlertRepo_Transition_ConditionalOnActive(t *testing.T) {
	api := &fakeAPI{}
	repo := NewAlertRepo(api, "alerts")

	err := repo.Transition(context.Background(), "a1", domain.AlertResolved, map[string]interface{}{
		"resolved_by": "u9",
	})
	require.NoError(t, err)
	in := api.updates[0]
	assert.Equal(t, "attribute_exists(alert_id) AND #cur = :active", aws.ToString(in.ConditionExpression))
	assert.Equal(t, fieldStatus, in.ExpressionAttributeNames["#cur"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "active"}, in.ExpressionAttributeValues[":active"])
}

func TestAlertRepo_Transition_LostRace(t *testing.T) {
	api := &fakeAPI{updateErr: &types.ConditionalCheckFailedException{}}
	err := NewAlertRepo(api, "alerts").Transition(context.Background(), "a1", domain.AlertFalseAlarm, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestAlertRepo_ListActive_FollowsPagesNewestFirst(t *testing.T) {
	a1 := domain.Alert{AlertID: "a1", Status: domain.AlertActive}
	a2 := domain.Alert{AlertID: "a2", Status: domain.AlertActive}
	api := &fakeAPI{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{alertItem(t, a2)}, LastEvaluatedKey: strKey("alert_id", "a2")},
		{Items: []map[string]types.AttributeValue{alertItem(t, a1)}},
	}}
	alerts, err := NewAlertRepo(api, "alerts").ListActive(context.Background())

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "a2", alerts[0].AlertID)
	require.Len(t, api.queries, 2)
	assert.Equal(t, indexStatusCreated, aws.ToString(api.queries[0].IndexName))
	assert.False(t, aws.ToBool(api.queries[0].ScanIndexForward))
	assert.NotNil(t, api.queries[1].ExclusiveStartKey)
}

func TestAlertRepo_ListByUser_OrdersSubSecondTimestamps(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 5, 0, time.UTC)
	older := domain.Alert{AlertID: "01A", UserID: "u1", Status: domain.AlertActive, CreatedAt: base}
	newer := domain.Alert{AlertID: "01B", UserID: "u1", Status: domain.AlertActive, CreatedAt: base.Add(500 * time.Millisecond)}

	olderItem, newerItem := alertItem(t, older), alertItem(t, newer)
	olderKey := olderItem["created_at"].(*types.AttributeValueMemberS).Value
	newerKey := newerItem["created_at"].(*types.AttributeValueMemberS).Value
	require.Greater(t, olderKey, newerKey, "stored keys sort against time order")

	// The index returns descending text order: older first.
	api := &fakeAPI{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{olderItem, newerItem}},
	}}
	alerts, err := NewAlertRepo(api, "alerts").ListByUser(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "01B", alerts[0].AlertID)
	assert.Equal(t, "01A", alerts[1].AlertID)
}

func TestAlertRepo_ListActiveWithin_KeepsNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 5, 0, time.UTC)
	loc := domain.Location{Latitude: 12.9, Longitude: 77.6}
	first := domain.Alert{AlertID: "01A", Status: domain.AlertActive, Location: loc, CreatedAt: base}
	second := domain.Alert{AlertID: "01B", Status: domain.AlertActive, Location: loc, CreatedAt: base.Add(250 * time.Millisecond)}
	api := &fakeAPI{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{alertItem(t, first), alertItem(t, second)}},
	}}

	alerts, err := NewAlertRepo(api, "alerts").ListActiveWithin(context.Background(), 12.9, 77.6, 1000)

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "01B", alerts[0].AlertID)
}

func TestAlertRepo_ListActiveWithin_FiltersByDistance(t *testing.T) {
	near := domain.Alert{AlertID: "near", Status: domain.AlertActive, Location: domain.Location{Latitude: 12.91, Longitude: 77.6}}
	far := domain.Alert{AlertID: "far", Status: domain.AlertActive, Location: domain.Location{Latitude: 13.5, Longitude: 77.6}}
	api := &fakeAPI{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{alertItem(t, near), alertItem(t, far)}},
	}}
	alerts, err := NewAlertRepo(api, "alerts").ListActiveWithin(context.Background(), 12.9, 77.6, 5000)

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "near", alerts[0].AlertID)
}

func TestAlertRepo_Ping(t *testing.T) {
	assert.NoError(t, NewAlertRepo(&fakeAPI{}, "alerts").Ping(context.Background()))

	err := NewAlertRepo(&fakeAPI{getErr: errors.New("no route to host")}, "alerts").Ping(context.Background())
	assert.ErrorContains(t, err, "ping alerts")
}

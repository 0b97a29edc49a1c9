package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sos-api/internal/domain"
)

// SessionRepo stores login sessions. A session is looked up by id from the
// bearer's sid claim, or by refresh token through a GSI.
type SessionRepo struct {
	client    API
	tableName string
}

func NewSessionRepo(client API, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put session %s: %w", s.SessionID, err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("session_id", sessionID),
	})
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return unmarshalSession(out.Item)
}

// GetByRefreshToken returns ErrNotFound for an unknown token and
// ErrUnauthorized for a token that belongs to a logged-out session.
func (r *SessionRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexRefreshToken),
		KeyConditionExpression:    aws.String("#rt = :rt"),
		ExpressionAttributeNames:  map[string]string{"#rt": fieldRefreshToken},
		ExpressionAttributeValues: map[string]types.AttributeValue{":rt": &types.AttributeValueMemberS{Value: token}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query session by refresh token: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("refresh token: %w", domain.ErrNotFound)
	}
	s, err := unmarshalSession(out.Items[0])
	if err != nil {
		return nil, err
	}
	if !s.Enable {
		return nil, fmt.Errorf("session %s disabled: %w", s.SessionID, domain.ErrUnauthorized)
	}
	return s, nil
}

// Disable marks a session as logged out. Disabling an unknown session is
// reported as ErrNotFound rather than creating an empty item.
func (r *SessionRepo) Disable(ctx context.Context, sessionID string) error {
	err := r.update(ctx, sessionID, map[string]interface{}{fieldEnable: false}, "attribute_exists(session_id)", nil)
	if isConditionFailed(err) {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return err
}

// RotateRefreshToken swaps oldToken for newToken. The write only applies while
// the session is enabled and still holds oldToken, so a refresh token can be
// redeemed once; the loser of a concurrent refresh gets ErrUnauthorized.
func (r *SessionRepo) RotateRefreshToken(ctx context.Context, sessionID, oldToken, newToken string, newExpiry int64) error {
	err := r.update(ctx, sessionID,
		map[string]interface{}{
			fieldRefreshToken:     newToken,
			fieldRefreshExpiresAt: newExpiry,
		},
		"#cond_rt = :old AND #cond_en = :on",
		&conditionParams{
			names: map[string]string{"#cond_rt": fieldRefreshToken, "#cond_en": fieldEnable},
			values: map[string]types.AttributeValue{
				":old": &types.AttributeValueMemberS{Value: oldToken},
				":on":  &types.AttributeValueMemberBOOL{Value: true},
			},
		},
	)
	if isConditionFailed(err) {
		return fmt.Errorf("refresh token already used: %w", domain.ErrUnauthorized)
	}
	return err
}

type conditionParams struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func (r *SessionRepo) update(ctx context.Context, sessionID string, updates map[string]interface{}, condition string, params *conditionParams) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	if params != nil {
		for k, v := range params.names {
			ue.Names[k] = v
		}
		for k, v := range params.values {
			ue.Values[k] = v
		}
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("session_id", sessionID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func unmarshalSession(item map[string]types.AttributeValue) (*domain.Session, error) {
	var s domain.Session
	if err := attributevalue.UnmarshalMap(item, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

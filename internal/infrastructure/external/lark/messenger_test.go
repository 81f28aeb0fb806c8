package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessages struct {
	req  *larkim.CreateMessageReq
	resp *larkim.CreateMessageResp
	err  error
}

func (f *fakeMessages) Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	f.req = req
	return f.resp, f.err
}

func okResponse(id string) *larkim.CreateMessageResp {
	return &larkim.CreateMessageResp{
		Data: &larkim.CreateMessageRespData{MessageId: larkcore.StringPtr(id)},
	}
}

func TestMessenger_SendText(t *testing.T) {
	fake := &fakeMessages{resp: okResponse("om_123")}
	m := newMessenger(fake, "", zap.NewNop())

	id, err := m.SendText(context.Background(), "ou_abc", `Document "SET-1" needs review`)
	require.NoError(t, err)
	assert.Equal(t, "om_123", id)

	require.NotNil(t, fake.req)
	body := fake.req.Body
	require.NotNil(t, body)
	assert.Equal(t, "ou_abc", *body.ReceiveId)
	assert.Equal(t, msgTypeText, *body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, `Document "SET-1" needs review`, content["text"])
}

func TestMessenger_SendTextFailures(t *testing.T) {
	apiFailure := &larkim.CreateMessageResp{}
	apiFailure.Code = 230001
	apiFailure.Msg = "invalid receive_id"

	tests := []struct {
		name     string
		receiver string
		text     string
		fake     *fakeMessages
		wantErr  string
	}{
		{"empty receiver", "", "hi", &fakeMessages{}, "receiver id"},
		{"empty text", "ou_1", "", &fakeMessages{}, "text cannot be empty"},
		{"transport error", "ou_1", "hi", &fakeMessages{err: errors.New("timeout")}, "timeout"},
		{"api error", "ou_1", "hi", &fakeMessages{resp: apiFailure}, "code=230001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMessenger(tt.fake, "open_id", zap.NewNop())
			_, err := m.SendText(context.Background(), tt.receiver, tt.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

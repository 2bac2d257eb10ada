package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawEvent(eventType, props string) *Event {
	return &Event{
		Type:       eventType,
		EventID:    "evt_test",
		Properties: json.RawMessage(props),
	}
}

func TestParseSession_InfoWrapper(t *testing.T) {
	evt := rawEvent(TypeSessionCreated, `{"info":{"id":"ses_1","directory":"/tmp/proj"}}`)

	sess, err := ParseSession(evt)
	require.NoError(t, err)
	assert.Equal(t, "ses_1", sess.ID)
	assert.Equal(t, "/tmp/proj", sess.Directory)
	assert.Equal(t, StatusIdle, sess.Status.Kind)
}

func TestParseSession_BareSessionID(t *testing.T) {
	evt := rawEvent(TypeSessionUpdated, `{"sessionID":"ses_2"}`)

	sess, err := ParseSession(evt)
	require.NoError(t, err)
	assert.Equal(t, "ses_2", sess.ID)
}

func TestParseSession_FallsBackToEnvelope(t *testing.T) {
	evt := rawEvent(TypeSessionCreated, `{}`)
	evt.SessionID = "ses_env"
	evt.Directory = "/work"

	sess, err := ParseSession(evt)
	require.NoError(t, err)
	assert.Equal(t, "ses_env", sess.ID)
	assert.Equal(t, "/work", sess.Directory)
}

func TestParseSession_NoID(t *testing.T) {
	_, err := ParseSession(rawEvent(TypeSessionCreated, `{}`))
	assert.Error(t, err)
}

func TestParseSessionStatus_Literals(t *testing.T) {
	cases := []struct {
		literal string
		want    StatusKind
	}{
		{"idle", StatusIdle},
		{"running", StatusBusy},
		{"error", StatusIdle},
	}

	for _, tc := range cases {
		evt := rawEvent(TypeSessionStatus, `{"sessionID":"ses_1","status":"`+tc.literal+`"}`)
		id, status, present, err := ParseSessionStatus(evt)
		require.NoError(t, err, tc.literal)
		assert.True(t, present)
		assert.Equal(t, "ses_1", id)
		assert.Equal(t, tc.want, status.Kind, tc.literal)
	}
}

func TestParseSessionStatus_RetryObject(t *testing.T) {
	evt := rawEvent(TypeSessionStatus,
		`{"sessionID":"ses_1","status":{"type":"retry","attempt":3,"message":"rate limited","next":1756300000000}}`)

	_, status, present, err := ParseSessionStatus(evt)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, StatusRetry, status.Kind)
	assert.Equal(t, 3, status.Attempt)
	assert.Equal(t, "rate limited", status.Message)
	assert.Equal(t, int64(1756300000000), status.Next)
}

func TestParseSessionStatus_RetryMissingFields(t *testing.T) {
	evt := rawEvent(TypeSessionStatus,
		`{"sessionID":"ses_1","status":{"type":"retry","attempt":3}}`)

	id, status, present, err := ParseSessionStatus(evt)
	assert.Error(t, err)
	assert.True(t, present)
	assert.Nil(t, status)
	assert.Equal(t, "ses_1", id)
}

func TestParseSessionStatus_UnknownLiteralRejected(t *testing.T) {
	evt := rawEvent(TypeSessionStatus, `{"sessionID":"ses_1","status":"warming_up"}`)

	_, status, present, err := ParseSessionStatus(evt)
	assert.Error(t, err)
	assert.True(t, present)
	assert.Nil(t, status)
}

func TestParseSessionStatus_Absent(t *testing.T) {
	evt := rawEvent(TypeSessionStatus, `{"sessionID":"ses_1"}`)

	id, status, present, err := ParseSessionStatus(evt)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, status)
	assert.Equal(t, "ses_1", id)
}

func TestParseMessage(t *testing.T) {
	evt := rawEvent(TypeMessageUpdated,
		`{"info":{"id":"msg_1","role":"assistant","sessionID":"ses_1","parentID":"msg_0"}}`)

	msg, err := ParseMessage(evt)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", msg.ID)
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, "ses_1", msg.SessionID)
	assert.Equal(t, "msg_0", msg.ParentID)
}

func TestParseMessage_SessionFromEnvelope(t *testing.T) {
	evt := rawEvent(TypeMessageUpdated, `{"info":{"id":"msg_1","role":"user"}}`)
	evt.SessionID = "ses_env"

	msg, err := ParseMessage(evt)
	require.NoError(t, err)
	assert.Equal(t, "ses_env", msg.SessionID)
}

func TestParseMessage_NoID(t *testing.T) {
	_, err := ParseMessage(rawEvent(TypeMessageUpdated, `{"info":{"role":"user"}}`))
	assert.Error(t, err)
}

func TestParsePart_RetainsRaw(t *testing.T) {
	raw := `{"id":"prt_1","messageID":"msg_1","sessionID":"ses_1","type":"tool","tool":"bash","callID":"call_9","custom":"extra"}`
	evt := rawEvent(TypeMessagePartUpdated, `{"part":`+raw+`}`)

	part, err := ParsePart(evt)
	require.NoError(t, err)
	assert.Equal(t, "prt_1", part.ID)
	assert.Equal(t, "msg_1", part.MessageID)
	assert.Equal(t, "bash", part.Tool)
	assert.JSONEq(t, raw, string(part.Raw))
}

func TestParsePart_MissingOwner(t *testing.T) {
	_, err := ParsePart(rawEvent(TypeMessagePartUpdated, `{"part":{"id":"prt_1"}}`))
	assert.Error(t, err)
}

func TestParsePartRef(t *testing.T) {
	ref, err := ParsePartRef(rawEvent(TypeMessagePartRemoved,
		`{"sessionID":"ses_1","messageID":"msg_1","partID":"prt_1"}`))
	require.NoError(t, err)
	assert.Equal(t, "msg_1", ref.MessageID)
	assert.Equal(t, "prt_1", ref.PartID)
}

func TestParsePartRef_PartWrapper(t *testing.T) {
	ref, err := ParsePartRef(rawEvent(TypeMessagePartRemoved,
		`{"part":{"id":"prt_1","messageID":"msg_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "msg_1", ref.MessageID)
	assert.Equal(t, "prt_1", ref.PartID)
}

func TestParsePermission(t *testing.T) {
	evt := rawEvent(TypePermissionAsked,
		`{"id":"perm_1","sessionID":"ses_1","messageID":"msg_1","title":"Run command","patterns":["rm -rf *","git push"]}`)

	perm, err := ParsePermission(evt)
	require.NoError(t, err)
	assert.Equal(t, "perm_1", perm.ID)
	assert.Equal(t, "msg_1", perm.MessageID)
	assert.Equal(t, []string{"rm -rf *", "git push"}, perm.Patterns)
	assert.Equal(t, "rm -rf *, git push", perm.Description)
}

func TestParsePermission_SyntheticMessageID(t *testing.T) {
	evt := rawEvent(TypePermissionAsked, `{"id":"perm_2","sessionID":"ses_1","title":"Edit file"}`)

	perm, err := ParsePermission(evt)
	require.NoError(t, err)
	assert.Equal(t, "permission:perm_2", perm.MessageID)
	assert.Equal(t, "Edit file", perm.Description)
}

func TestParseQuestion_FirstOfMany(t *testing.T) {
	evt := rawEvent(TypeQuestionAsked,
		`{"id":"qst_1","sessionID":"ses_1","questions":[{"text":"Which branch?","options":[{"label":"main"},{"label":"develop"}]},{"text":"ignored"}]}`)

	q, err := ParseQuestion(evt)
	require.NoError(t, err)
	assert.Equal(t, "qst_1", q.ID)
	assert.Equal(t, "Which branch?", q.Text)
	assert.Equal(t, []string{"main", "develop"}, q.Options)
	assert.Equal(t, "question:qst_1", q.MessageID)
}

func TestParseReply_IDFallbacks(t *testing.T) {
	reply, err := ParseReply(rawEvent(TypePermissionReplied, `{"permissionID":"perm_1","reply":"approve"}`))
	require.NoError(t, err)
	assert.Equal(t, "perm_1", reply.RequestID)
	assert.Equal(t, "approve", reply.Reply)

	reply, err = ParseReply(rawEvent(TypeQuestionReplied, `{"id":"qst_1","answers":["main"]}`))
	require.NoError(t, err)
	assert.Equal(t, "qst_1", reply.RequestID)
	assert.Equal(t, []string{"main"}, reply.Answers)
}

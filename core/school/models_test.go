package school

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestTeacher_Status(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := null.TimeFrom(now.Add(-time.Hour))
	future := null.TimeFrom(now.Add(time.Hour))

	tests := []struct {
		name       string
		inv        Invitation
		want       Status
		wantResend bool
	}{
		{name: "legacy", inv: Invitation{}, want: StatusActive, wantResend: true},
		{name: "accepted", inv: Invitation{InvitationStatus: InvitationAccepted}, want: StatusActive},
		{name: "explicitly active", inv: Invitation{IsActive: null.BoolFrom(true), InvitationStatus: InvitationAccepted}, want: StatusActive},
		{name: "inactive wins", inv: Invitation{IsActive: null.BoolFrom(false), InvitationStatus: InvitationPending}, want: StatusInactive, wantResend: true},
		{name: "pending", inv: Invitation{InvitationStatus: InvitationPending}, want: StatusAwaiting, wantResend: true},
		{name: "pending not expired", inv: Invitation{InvitationStatus: InvitationPending, InvitationExpiresAt: future}, want: StatusAwaiting, wantResend: true},
		{name: "pending past expiry", inv: Invitation{InvitationStatus: InvitationPending, InvitationExpiresAt: past}, want: StatusExpired, wantResend: true},
		{name: "expired", inv: Invitation{InvitationStatus: InvitationExpired}, want: StatusExpired, wantResend: true},
		{name: "unknown status", inv: Invitation{InvitationStatus: "revoked"}, want: StatusInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			teacher := Teacher{ID: "t1", Invitation: tt.inv}
			if got := teacher.Status(now); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
			if got := teacher.CanResendInvitation(); got != tt.wantResend {
				t.Errorf("CanResendInvitation() = %v, want %v", got, tt.wantResend)
			}
		})
	}
}

func TestTeamMember(t *testing.T) {
	now := time.Now()

	invite := TeamMember{InvitationID: "i1", Email: "kofi@school.test"}
	invite.InvitationStatus = InvitationPending
	invite.IsActive = null.BoolFrom(false)

	// without an account, is_active is ignored
	assert.Equal(t, StatusAwaiting, invite.Status(now))
	assert.True(t, invite.IsPendingInvitation())
	assert.Equal(t, "i1", invite.Identifier())
	assert.Equal(t, "kofi", invite.DisplayName())

	admin := TeamMember{ID: "a1", InvitationID: "i1", Name: "Kofi"}
	admin.IsActive = null.BoolFrom(false)
	assert.Equal(t, StatusInactive, admin.Status(now))
	assert.False(t, admin.IsPendingInvitation())
	assert.Equal(t, "a1", admin.Identifier())
	assert.Equal(t, "Kofi", admin.DisplayName())

	assert.Equal(t, "School Admin", TeamMember{}.DisplayName())
}

func TestDecodeListings(t *testing.T) {
	body := `{
		"id": "s1",
		"name": "Amani",
		"class_id": "c1",
		"icon_sequence": [5, 1, 19, 3],
		"classes": {"name": "Sunflowers"}
	}`
	var s Student
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	assert.Equal(t, "5, 1, 19, 3", s.IconSequence.String())
	assert.True(t, s.Active(), "missing is_active means active")
	assert.Equal(t, "pending", s.Registration())
	assert.Equal(t, "Sunflowers", s.Class.Name)

	var teacher Teacher
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "t1",
		"is_active": false,
		"invitation_status": "pending",
		"invitation_expires_at": "2024-01-01T00:00:00Z"
	}`), &teacher))
	assert.False(t, teacher.Active())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), teacher.InvitationExpiresAt.Time)

	var class Class
	require.NoError(t, json.Unmarshal([]byte(`{"id": "c1", "location_id": null}`), &class))
	assert.False(t, class.LocationID.Valid)
	assert.Equal(t, "No teacher", class.TeacherName())
}

func TestInvitationResult_Err(t *testing.T) {
	tests := []struct {
		name    string
		res     InvitationResult
		wantErr string
	}{
		{name: "sent", res: InvitationResult{InvitationSent: true}},
		{name: "not configured", res: InvitationResult{Error: "email_service_not_configured", Message: "ignored"}, wantErr: ErrEmailNotConfigured.Error()},
		{name: "send failed", res: InvitationResult{Error: "email_send_failed"}, wantErr: ErrEmailSendFailed.Error()},
		{name: "server message", res: InvitationResult{Message: "quota exceeded"}, wantErr: "quota exceeded"},
		{name: "nothing", res: InvitationResult{}, wantErr: "failed to send invitation email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.res.Err()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestPaymentStatus_Text(t *testing.T) {
	assert.Contains(t, PaymentStatus{}.Text(), "Payments not yet enabled")
	assert.Equal(t, "active", PaymentStatus{Enabled: true, Status: "active"}.Text())
	assert.Equal(t, "trial", PaymentStatus{Message: "trial"}.Text())
}

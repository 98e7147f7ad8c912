package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

func newBdrisFixture() (*BdrisService, *memStore[models.BdrisApplication], *memStore[models.BdrisApplicationError]) {
	submissions := newMemStore(func(id int64, values map[string]any) *models.BdrisApplication {
		row := &models.BdrisApplication{ID: id}
		row.UserID, _ = values["user_id"].(int64)
		row.ApplicationType, _ = values["application_type"].(string)
		row.UBRN, _ = values["ubrn"].(string)
		row.Payload, _ = values["payload"].(json.RawMessage)
		row.Response, _ = values["response"].(json.RawMessage)
		return row
	}, func(r *models.BdrisApplication) int64 { return r.UserID })
	failures := newMemStore(func(id int64, values map[string]any) *models.BdrisApplicationError {
		row := &models.BdrisApplicationError{ID: id}
		row.UserID, _ = values["user_id"].(int64)
		row.ErrorMessage, _ = values["error_message"].(string)
		return row
	}, func(r *models.BdrisApplicationError) int64 { return r.UserID })
	return NewBdrisService(submissions, failures), submissions, failures
}

func TestBdrisService_RecordSubmission(t *testing.T) {
	svc, _, _ := newBdrisFixture()
	ctx := as(types.RoleEntrepreneur, entrepreneurID)

	row, err := svc.RecordSubmission(ctx, entrepreneurID, BdrisSubmissionInput{
		ApplicationType: " birth_registration ",
		Payload:         json.RawMessage(`{"name":"Rahim"}`),
		Response:        json.RawMessage(`{"ubrn":"19901234567890123","status":"ok"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "birth_registration", row.ApplicationType)
	assert.Equal(t, "19901234567890123", row.UBRN, "ubrn falls back to the registry response")

	row, err = svc.RecordSubmission(ctx, entrepreneurID, BdrisSubmissionInput{
		ApplicationType: "birth_registration",
		UBRN:            "explicit",
		Payload:         json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "explicit", row.UBRN)
	assert.JSONEq(t, `{}`, string(row.Response))
}

func TestBdrisService_RejectsInvalidJSON(t *testing.T) {
	svc, submissions, failures := newBdrisFixture()
	ctx := as(types.RoleEntrepreneur, entrepreneurID)

	_, err := svc.RecordSubmission(ctx, entrepreneurID, BdrisSubmissionInput{
		ApplicationType: "birth_registration",
		Payload:         json.RawMessage(`{"name":`),
	})
	fields, _ := apperrors.Categorize(err).Details["fields"].(map[string]string)
	assert.Contains(t, fields, "payload")

	_, err = svc.RecordFailure(ctx, entrepreneurID, BdrisFailureInput{
		ApplicationType: "birth_registration",
		Payload:         json.RawMessage(`{}`),
	})
	fields, _ = apperrors.Categorize(err).Details["fields"].(map[string]string)
	assert.Contains(t, fields, "errorMessage")

	assert.Empty(t, submissions.created)
	assert.Empty(t, failures.created)
}

func TestBdrisService_OwnerScopedReads(t *testing.T) {
	svc, _, _ := newBdrisFixture()
	mine := as(types.RoleEntrepreneur, entrepreneurID)
	theirs := as(types.RoleAgent, agentID)

	row, err := svc.RecordFailure(mine, entrepreneurID, BdrisFailureInput{
		ApplicationType: "death_registration",
		Payload:         json.RawMessage(`{}`),
		ErrorMessage:    "registry timeout",
	})
	require.NoError(t, err)
	_, err = svc.RecordFailure(theirs, agentID, BdrisFailureInput{
		ApplicationType: "death_registration",
		Payload:         json.RawMessage(`{}`),
		ErrorMessage:    "duplicate",
	})
	require.NoError(t, err)

	page, err := svc.ListFailures(mine, storage.ListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalCount)

	_, err = svc.GetFailure(theirs, row.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	got, err := svc.GetFailure(as(types.RoleAdmin, adminID), row.ID)
	require.NoError(t, err)
	assert.Equal(t, "registry timeout", got.ErrorMessage)

	page, err = svc.ListFailures(as(types.RoleAdmin, adminID), storage.ListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalCount)
}

package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
)

// BdrisSubmissionInput records an accepted civil-registry submission
type BdrisSubmissionInput struct {
	ApplicationType string          `json:"applicationType" validate:"required,max=64"`
	UBRN            string          `json:"ubrn" validate:"omitempty,max=64"`
	Payload         json.RawMessage `json:"payload" validate:"required"`
	Response        json.RawMessage `json:"response"`
}

// BdrisFailureInput records a rejected civil-registry submission
type BdrisFailureInput struct {
	ApplicationType string          `json:"applicationType" validate:"required,max=64"`
	Payload         json.RawMessage `json:"payload" validate:"required"`
	ErrorMessage    string          `json:"errorMessage" validate:"required"`
}

// BdrisService keeps the append-only audit of civil-registry submissions
type BdrisService struct {
	submissions Store[models.BdrisApplication]
	failures    Store[models.BdrisApplicationError]

	submissionReader *OwnedReader[models.BdrisApplication]
	failureReader    *OwnedReader[models.BdrisApplicationError]
}

// NewBdrisService creates the BDRIS record service
func NewBdrisService(submissions Store[models.BdrisApplication], failures Store[models.BdrisApplicationError]) *BdrisService {
	return &BdrisService{
		submissions: submissions,
		failures:    failures,
		submissionReader: NewOwnedReader[models.BdrisApplication](submissions, storage.BdrisApplicationSchema.Resource, func(r *models.BdrisApplication) int64 {
			return r.UserID
		}),
		failureReader: NewOwnedReader[models.BdrisApplicationError](failures, storage.BdrisErrorSchema.Resource, func(r *models.BdrisApplicationError) int64 {
			return r.UserID
		}),
	}
}

// RecordSubmission appends a successful submission for userID
func (s *BdrisService) RecordSubmission(ctx context.Context, userID int64, input BdrisSubmissionInput) (*models.BdrisApplication, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if err := requireJSON(map[string]json.RawMessage{"payload": input.Payload, "response": input.Response}); err != nil {
		return nil, err
	}

	response := input.Response
	if len(response) == 0 {
		response = json.RawMessage(`{}`)
	}
	ubrn := strings.TrimSpace(input.UBRN)
	if ubrn == "" {
		// The registry echoes the registration number in its response
		ubrn = gjson.GetBytes(response, "ubrn").String()
	}

	return s.submissions.Create(ctx, map[string]any{
		"user_id":          userID,
		"application_type": strings.TrimSpace(input.ApplicationType),
		"ubrn":             ubrn,
		"payload":          input.Payload,
		"response":         response,
	})
}

// RecordFailure appends a failed submission for userID
func (s *BdrisService) RecordFailure(ctx context.Context, userID int64, input BdrisFailureInput) (*models.BdrisApplicationError, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if err := requireJSON(map[string]json.RawMessage{"payload": input.Payload}); err != nil {
		return nil, err
	}

	return s.failures.Create(ctx, map[string]any{
		"user_id":          userID,
		"application_type": strings.TrimSpace(input.ApplicationType),
		"payload":          input.Payload,
		"error_message":    strings.TrimSpace(input.ErrorMessage),
	})
}

// ListSubmissions returns submissions visible to the caller
func (s *BdrisService) ListSubmissions(ctx context.Context, params storage.ListParams) (*storage.Page[models.BdrisApplication], error) {
	return s.submissionReader.List(ctx, params)
}

// GetSubmission returns one submission visible to the caller
func (s *BdrisService) GetSubmission(ctx context.Context, id int64) (*models.BdrisApplication, error) {
	return s.submissionReader.Get(ctx, id)
}

// ListFailures returns failures visible to the caller
func (s *BdrisService) ListFailures(ctx context.Context, params storage.ListParams) (*storage.Page[models.BdrisApplicationError], error) {
	return s.failureReader.List(ctx, params)
}

// GetFailure returns one failure visible to the caller
func (s *BdrisService) GetFailure(ctx context.Context, id int64) (*models.BdrisApplicationError, error) {
	return s.failureReader.Get(ctx, id)
}

// requireJSON rejects present values that are not valid JSON
func requireJSON(docs map[string]json.RawMessage) error {
	invalid := map[string]string{}
	for name, doc := range docs {
		if len(doc) > 0 && !gjson.ValidBytes(doc) {
			invalid[name] = "must be valid JSON"
		}
	}
	if len(invalid) > 0 {
		return apperrors.NewValidationError("invalid input", invalid)
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/metrics"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// requiredPayloadFields lists the data fields each application type must carry
var requiredPayloadFields = map[types.ApplicationType][]string{
	types.ApplicationBirthRegistration:   {"full_name", "date_of_birth", "father_name", "mother_name", "birth_place"},
	types.ApplicationBirthCorrection:     {"registration_number", "date_of_birth", "correction_details"},
	types.ApplicationDeathRegistration:   {"full_name", "date_of_death", "applicant_name", "registration_number"},
	types.ApplicationPassport:            {"full_name", "passport_number", "issue_date", "expiry_date"},
	types.ApplicationTrainingCertificate: {"full_name", "training_center", "country", "photo"},
}

// ApplicationNotifier announces new applications; satisfied by *notify.Notifier
type ApplicationNotifier interface {
	ApplicationSubmitted(app *models.Application)
}

// CreateApplicationInput is the body of a new application
type CreateApplicationInput struct {
	Type string          `json:"type" validate:"required,apptype"`
	Data json.RawMessage `json:"data" validate:"required"`
}

// ReviewInput finalizes a pending application or recharge request
type ReviewInput struct {
	Status types.ReviewStatus `json:"status" validate:"required,oneof=approved rejected"`
	Note   string             `json:"note" validate:"max=2000"`
}

// ApplicationService runs the paid application workflow: resolve the fee,
// debit the balance and insert the application in one transaction
type ApplicationService struct {
	ledger   LedgerStore
	fees     *FeeResolver
	reader   *OwnedReader[models.Application]
	notifier ApplicationNotifier
	events   *LedgerRecorder
	logger   *logging.Logger
}

// NewApplicationService creates the application service. notifier and events may be nil.
func NewApplicationService(
	ledger LedgerStore,
	fees *FeeResolver,
	applications Reader[models.Application],
	notifier ApplicationNotifier,
	events *LedgerRecorder,
	logger *logging.Logger,
) *ApplicationService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &ApplicationService{
		ledger: ledger,
		fees:   fees,
		reader: NewOwnedReader(applications, storage.ApplicationSchema.Resource, func(a *models.Application) int64 {
			return a.UserID
		}),
		notifier: notifier,
		events:   events,
		logger:   logger.WithField("component", "applications"),
	}
}

// Create charges the caller's balance and records a pending application.
// Nothing is written unless every step succeeds.
func (s *ApplicationService) Create(ctx context.Context, userID int64, input CreateApplicationInput) (*models.Application, error) {
	app, balanceAfter, err := s.create(ctx, userID, input)
	if err != nil {
		metrics.RecordWorkflow("create_application", apperrors.Categorize(err).Code)
		return nil, err
	}
	metrics.RecordWorkflow("create_application", "ok")

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"application_id": app.ID,
		"user_id":        userID,
		"type":           app.Type,
		"fee_applied":    app.FeeApplied.String(),
	}).Info("application created")

	// Committed: side effects run in the background and cannot fail the request
	if s.notifier != nil {
		s.notifier.ApplicationSubmitted(app)
	}
	s.events.Record(userID, types.LedgerDebit, app.FeeApplied, balanceAfter, "application", app.ID)

	return app, nil
}

// create checks the user exists before the input, then validates before any
// write
func (s *ApplicationService) create(ctx context.Context, userID int64, input CreateApplicationInput) (*models.Application, decimal.Decimal, error) {
	var (
		created      *models.Application
		balanceAfter decimal.Decimal
	)
	err := s.ledger.InTx(ctx, func(q storage.LedgerQueries) error {
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		if err := validateInput(&input); err != nil {
			return err
		}
		appType, _ := types.ParseApplicationType(input.Type)
		if err := validatePayload(appType, input.Data); err != nil {
			return err
		}

		if !user.IsActive() {
			return apperrors.NewForbiddenError("account is " + string(user.Status))
		}

		fee, err := s.fees.ResolveFeeTx(ctx, q, user.ID, user.Role, appType)
		if err != nil {
			return err
		}

		after, err := q.DebitBalance(ctx, user.ID, fee)
		if err != nil {
			if errors.Is(err, storage.ErrInsufficientFunds) {
				return apperrors.NewInsufficientBalanceError(user.Balance.StringFixed(2), fee.StringFixed(2))
			}
			return err
		}
		balanceAfter = after

		created, err = q.InsertApplication(ctx, &models.Application{
			UserID:     user.ID,
			Type:       appType,
			Data:       input.Data,
			FeeApplied: fee,
		})
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return created, balanceAfter, nil
}

// Review approves or rejects a pending application. Rejection keeps the fee.
func (s *ApplicationService) Review(ctx context.Context, id, reviewerID int64, input ReviewInput) (*models.Application, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if !types.ReviewPending.CanTransitionTo(input.Status) {
		return nil, apperrors.NewInvalidParameterError("status", "must be approved or rejected")
	}

	app, err := s.ledger.Queries().FinalizeApplication(ctx, id, input.Status, reviewerID, strings.TrimSpace(input.Note))
	if err != nil {
		metrics.RecordWorkflow("review_application", apperrors.Categorize(err).Code)
		return nil, err
	}
	metrics.RecordWorkflow("review_application", "ok")
	return app, nil
}

// List returns applications visible to the caller
func (s *ApplicationService) List(ctx context.Context, params storage.ListParams) (*storage.Page[models.Application], error) {
	return s.reader.List(ctx, params)
}

// Get returns one application visible to the caller
func (s *ApplicationService) Get(ctx context.Context, id int64) (*models.Application, error) {
	return s.reader.Get(ctx, id)
}

// validatePayload checks that data is a JSON object carrying every required
// field of the type as a non-empty string
func validatePayload(appType types.ApplicationType, data json.RawMessage) error {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return apperrors.NewValidationError("invalid application data", map[string]string{
			"data": "must be a JSON object",
		})
	}

	missing := map[string]string{}
	for _, field := range requiredPayloadFields[appType] {
		value := gjson.GetBytes(data, field)
		if value.Type != gjson.String || strings.TrimSpace(value.Str) == "" {
			missing["data."+field] = "is required"
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing application data", missing)
	}
	return nil
}

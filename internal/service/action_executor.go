package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type studentRegistrar interface {
	CreateAccount(ctx context.Context, payload dto.RegisterStudentPayload) (*dto.RegistrationResult, *models.Student, error)
	DetectDuplicates(ctx context.Context, student *models.Student)
}

type accountAdmin interface {
	Deactivate(ctx context.Context, targetID, actorID string) error
	Delete(ctx context.Context, targetID, actorID string) error
}

// Execution is what an executor branch produced.
type Execution struct {
	Registration *dto.RegistrationResult
	Student      *models.Student
}

// ActionExecutor applies the side effect described by an approved pending action.
// It is the same logic the privileged direct paths run.
type ActionExecutor struct {
	registrar studentRegistrar
	accounts  accountAdmin
}

// NewActionExecutor constructs the executor.
func NewActionExecutor(registrar studentRegistrar, accounts accountAdmin) *ActionExecutor {
	return &ActionExecutor{registrar: registrar, accounts: accounts}
}

// Execute dispatches on the payload variant. ctx carries the approval transaction.
func (e *ActionExecutor) Execute(ctx context.Context, action *models.PendingAction, payload dto.ActionPayload, reviewerID string) (*Execution, error) {
	switch p := payload.(type) {
	case dto.RegisterStudentPayload:
		result, student, err := e.registrar.CreateAccount(ctx, p)
		if err != nil {
			return nil, err
		}
		return &Execution{Registration: result, Student: student}, nil
	case dto.DeactivateUserPayload:
		targetID, err := targetOf(action)
		if err != nil {
			return nil, err
		}
		if err := e.accounts.Deactivate(ctx, targetID, reviewerID); err != nil {
			return nil, err
		}
		return &Execution{}, nil
	case dto.DeleteUserPayload:
		targetID, err := targetOf(action)
		if err != nil {
			return nil, err
		}
		if err := e.accounts.Delete(ctx, targetID, reviewerID); err != nil {
			return nil, err
		}
		return &Execution{}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no executor for action type %s", action.ActionType))
	}
}

func targetOf(action *models.PendingAction) (string, error) {
	if action.TargetUserID == nil || *action.TargetUserID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "targetUserId is required")
	}
	return *action.TargetUserID, nil
}

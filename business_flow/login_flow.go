package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/app/services"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/repository"
	"github.com/glowdesk/invite-engine/utils"
	"golang.org/x/crypto/bcrypt"
)

// LoginFlow defines operator authentication operations
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenInfo, error)
}

// LoginFlowImpl implements the operator login flow
type LoginFlowImpl struct {
	operatorRepo repository.OperatorRepository
	salonRepo    repository.SalonRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	tokenTTL     time.Duration
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	operatorRepo repository.OperatorRepository,
	salonRepo repository.SalonRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	tokenTTL time.Duration,
) LoginFlow {
	return &LoginFlowImpl{
		operatorRepo: operatorRepo,
		salonRepo:    salonRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		tokenTTL:     tokenTTL,
	}
}

// Login authenticates an operator by email and password
func (f *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResult, error) {
	operator, err := f.operatorRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_LOOKUP_FAILED", "failed to look up operator", err)
	}
	if operator == nil {
		f.auditLoginFailure(ctx, nil, "unknown email", metadata)
		return nil, NewBusinessError("OPERATOR_NOT_FOUND", "operator not found", ErrOperatorNotFound)
	}

	if !operator.IsActive() {
		f.auditLoginFailure(ctx, operator, "account suspended", metadata)
		return nil, NewBusinessError("OPERATOR_SUSPENDED", "operator account is suspended", ErrOperatorSuspended)
	}

	salon, err := f.salonRepo.ByID(ctx, operator.SalonID)
	if err != nil || salon == nil {
		return nil, NewBusinessError("SALON_NOT_FOUND", "salon not found", ErrSalonNotFound)
	}
	if !utils.IsTrue(salon.IsActive) {
		f.auditLoginFailure(ctx, operator, "salon inactive", metadata)
		return nil, NewBusinessError("SALON_INACTIVE", "salon is inactive", ErrSalonInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(req.Password)); err != nil {
		f.auditLoginFailure(ctx, operator, "incorrect password", metadata)
		return nil, NewBusinessError("INCORRECT_PASSWORD", "incorrect password", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := f.tokenService.GenerateTokens(operator.ID, operator.SalonID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "failed to generate tokens", err)
	}

	now := utils.UTCNow()
	if err := f.operatorRepo.UpdateLastLogin(ctx, operator.ID, now); err != nil {
		log.Printf("failed to update last login for operator %d: %v", operator.ID, err)
	}

	f.createAuditLog(ctx, operator, models.AuditActionLoginSuccessful,
		fmt.Sprintf("operator %s logged in", operator.Email), metadata, true, nil)

	return &dto.LoginResult{
		Operator: dto.OperatorInfo{
			ID:          operator.ID,
			UUID:        operator.UUID.String(),
			Email:       operator.Email,
			DisplayName: operator.DisplayName,
			SalonID:     operator.SalonID,
			CreatedAt:   operator.CreatedAt.Format(time.RFC3339),
		},
		Token: dto.TokenInfo{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(f.tokenTTL.Seconds()),
			ExpiresAt:    now.Add(f.tokenTTL),
		},
	}, nil
}

// RefreshToken exchanges a refresh token for a new token pair
func (f *LoginFlowImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenInfo, error) {
	accessToken, newRefreshToken, err := f.tokenService.RefreshToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "failed to refresh token", err)
	}

	now := utils.UTCNow()
	return &dto.TokenInfo{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(f.tokenTTL.Seconds()),
		ExpiresAt:    now.Add(f.tokenTTL),
	}, nil
}

func (f *LoginFlowImpl) auditLoginFailure(ctx context.Context, operator *models.Operator, reason string, metadata *ClientMetadata) {
	if operator == nil {
		return
	}
	f.createAuditLog(ctx, operator, models.AuditActionLoginFailed, reason, metadata, false, nil)
}

func (f *LoginFlowImpl) createAuditLog(ctx context.Context, operator *models.Operator, action, description string, metadata *ClientMetadata, success bool, cause error) {
	auditLog := &models.AuditLog{
		OperatorID:  &operator.ID,
		Action:      action,
		Description: &description,
		Success:     &success,
		CreatedAt:   utils.UTCNow(),
	}
	if cause != nil {
		msg := cause.Error()
		auditLog.ErrorMessage = &msg
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			auditLog.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			auditLog.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			auditLog.RequestID = &metadata.RequestID
		}
		if len(metadata.Additional) > 0 {
			if raw, err := json.Marshal(metadata.Additional); err == nil {
				auditLog.Metadata = raw
			}
		}
	}

	if err := f.auditRepo.Save(ctx, auditLog); err != nil {
		log.Printf("failed to write audit log (%s): %v", action, err)
	}
}

package service

import (
	"context"
	"strings"

	"github.com/existflow/taskprox/internal/form"
	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/model"
)

// Login authenticates, starts the session and caches the profile
func (s *Service) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := form.Struct(creds); err != nil {
		return nil, err
	}

	res, err := s.backend.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.session.Init(ctx, res.AccessToken, creds.RememberMe); err != nil {
		return nil, err
	}

	remembered := ""
	if creds.RememberMe {
		remembered = creds.Email
	}
	if err := s.session.SetRememberedEmail(ctx, remembered); err != nil {
		logger.Warn("Failed to store remembered email", logger.F("error", err))
	}

	user, err := s.Profile(ctx)
	if err != nil {
		// the profile is display-only
		logger.Warn("Failed to load profile after login", logger.F("error", err))
		return nil, nil
	}
	return user, nil
}

// Register creates an account after checking the form and password confirmation
func (s *Service) Register(ctx context.Context, reg model.Registration, confirm string) (string, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := form.Struct(reg); err != nil {
		return "", err
	}
	if err := form.ConfirmPassword(reg.Password, confirm); err != nil {
		return "", err
	}
	return s.backend.Register(ctx, reg)
}

// ForgotPassword requests a reset email
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := form.Email(email); err != nil {
		return "", err
	}
	return s.backend.ForgotPassword(ctx, email)
}

// ResetPassword sets a new password from an emailed token
func (s *Service) ResetPassword(ctx context.Context, reset model.PasswordReset, confirm string) (string, error) {
	if err := form.Struct(reset); err != nil {
		return "", err
	}
	if err := form.ConfirmPassword(reset.Password, confirm); err != nil {
		return "", err
	}
	return s.backend.ResetPassword(ctx, reset)
}

// Profile fetches the profile and refreshes the cached copy
func (s *Service) Profile(ctx context.Context) (*model.User, error) {
	if !s.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	user, err := s.backend.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.session.SetUser(ctx, user); err != nil {
		logger.Warn("Failed to cache profile", logger.F("error", err))
	}
	return user, nil
}

// UpdateProfile validates and saves profile fields, returning the new profile
func (s *Service) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error) {
	if err := form.Struct(update); err != nil {
		return nil, err
	}
	if _, err := s.backend.UpdateProfile(ctx, update); err != nil {
		return nil, err
	}
	return s.Profile(ctx)
}

// DeleteAccount removes the account and ends the session
func (s *Service) DeleteAccount(ctx context.Context) error {
	if !s.session.LoggedIn() {
		return ErrNotLoggedIn
	}
	if _, err := s.backend.DeleteAccount(ctx); err != nil {
		return err
	}
	return s.Logout(ctx)
}

// Logout ends the session and forgets the local lists
func (s *Service) Logout(ctx context.Context) error {
	s.tasks.Set(nil)
	s.projects.Set(nil)
	return s.session.Teardown(ctx)
}

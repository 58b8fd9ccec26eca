// auth.go
//
// A CRM data service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-crm.
// jam-build-crm is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-crm is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-crm.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/config"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/mutation"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/types"
)

const (
	otpLifetime   = 10 * time.Minute
	resetLifetime = 4 * time.Hour
)

const (
	// MsgResetUnknown is returned for unknown addresses so callers cannot probe for accounts.
	MsgResetUnknown = "If the email address exists in our system, we will send a reset link."
	// MsgResetSent confirms a reset mail went out.
	MsgResetSent = "Reset link sent successfully. Check your email."
)

func errInvalidCredentials() error {
	return types.ValidationError("Invalid credentials, please double-check and try again.")
}

// Session is the result of a register or login.
type Session struct {
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
	Expires time.Time    `json:"expires"`
}

// Auth owns accounts, passwords, OTP verification and bearer tokens.
type Auth struct {
	base
	mailer    Mailer
	tokens    *Tokens
	clientURL string
}

func newAuth(b base, mailer Mailer, cfg *config.Config) *Auth {
	return &Auth{
		base:      b,
		mailer:    mailer,
		tokens:    NewTokens(cfg.JWTSecret, cfg.UserTokenExpiry, b.now),
		clientURL: strings.TrimSuffix(cfg.ClientURL, "/"),
	}
}

// Tokens exposes the token issuer, for the bearer middleware.
func (a *Auth) Tokens() *Tokens {
	return a.tokens
}

// Register creates an unverified account and mails its activation code.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (*Session, *mutation.Trace, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Telephone = strings.TrimSpace(in.Telephone)

	return mutation.Run(ctx, a.engine, mutation.Op[*Session]{
		Name:     "user.register",
		Validate: in.schema().Validate,
		Load: func(ctx context.Context) error {
			taken, err := exists[models.User](ctx, a.db, "email = ?", in.Email)
			if err != nil {
				return err
			}
			if taken {
				return types.ConflictError("Email already exists")
			}
			if in.Telephone == "" {
				return nil
			}
			taken, err = exists[models.User](ctx, a.db, "telephone = ?", in.Telephone)
			if err != nil {
				return err
			}
			if taken {
				return types.ConflictError("Telephone already exists")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*Session, error) {
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, types.InternalError(err)
			}
			code, err := newOTP()
			if err != nil {
				return nil, types.InternalError(err)
			}
			expiry := a.now().Add(otpLifetime)
			user := &models.User{
				Fullname:     strings.TrimSpace(in.Fullname),
				Email:        in.Email,
				Telephone:    optional(in.Telephone),
				City:         strings.TrimSpace(in.City),
				Country:      strings.TrimSpace(in.Country),
				Role:         in.Role,
				PasswordHash: string(hash),
				OTPCode:      code,
				OTPExpiry:    &expiry,
			}
			if err := a.db.WithContext(ctx).Create(user).Error; err != nil {
				return nil, err
			}
			return a.session(user)
		},
		Dependents: []mutation.Step[*Session]{{
			Name: "sending activation code",
			Run: func(ctx context.Context, s *Session) error {
				body := fmt.Sprintf("<p>Hello %s,</p><p>Your activation code is <strong>%s</strong>. It expires in 10 minutes.</p>",
					s.User.Fullname, s.User.OTPCode)
				if err := a.mailer.Send(ctx, s.User.Email, "Account Activation Code", body); err != nil {
					a.log.Error().Err(err).Str("user", s.User.ID.String()).Msg("activation mail failed")
					a.db.WithContext(ctx).Model(s.User).Updates(map[string]any{"otp_code": "", "otp_expiry": nil})
					return &types.CustomError{Code: http.StatusInternalServerError, Message: "Error sending email", Type: types.KindInternal, Err: err}
				}
				return nil
			},
		}},
		Notify: func(s *Session) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("User %s has registered", s.User.Fullname),
				Type:      notify.TypeCreate,
				Ref:       notify.UserRef(s.User.ID),
				CreatedBy: s.User.ID,
			}}
		},
	})
}

// Login checks the password and issues a token. Unknown emails and wrong passwords get
// the same error.
func (a *Auth) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if msgs := mutation.NewSchema().
		Field("email", email, mutation.Required("Email is required")).
		Field("password", password, mutation.Required("Password is required")).
		Validate(); len(msgs) > 0 {
		return nil, types.ValidationError(msgs...)
	}

	var user models.User
	err := a.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials()
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errInvalidCredentials()
	}
	return a.session(&user)
}

// VerifyOTP marks the account verified when the code matches and has not expired.
func (a *Auth) VerifyOTP(ctx context.Context, email, code string) (*models.User, *mutation.Trace, error) {
	var user models.User
	return mutation.Run(ctx, a.engine, mutation.Op[*models.User]{
		Name: "user.verify",
		Validate: mutation.NewSchema().
			Field("email", email, mutation.Required("Email is required")).
			Field("otp", code, mutation.Required("OTP is required")).
			Validate,
		Load: func(ctx context.Context) error {
			err := a.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).Take(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFoundError("User not found.")
			}
			return err
		},
		Authorize: func(context.Context) error {
			if user.OTPExpiry == nil || a.now().After(*user.OTPExpiry) {
				return types.ValidationError("OTP has expired.")
			}
			if user.OTPCode == "" || user.OTPCode != strings.TrimSpace(code) {
				return types.ValidationError("Invalid OTP.")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.User, error) {
			err := a.db.WithContext(ctx).Model(&user).Updates(map[string]any{
				"verified":   true,
				"otp_code":   "",
				"otp_expiry": nil,
			}).Error
			if err != nil {
				return nil, err
			}
			user.Verified = true
			return &user, nil
		},
	})
}

// ForgotPassword mails a reset link when the address belongs to an account. It returns the
// message to show, which is the same for unknown addresses.
func (a *Auth) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if msgs := mutation.NewSchema().
		Field("email", email, mutation.Required("Please provide a valid email address."), mutation.Email()).
		Validate(); len(msgs) > 0 {
		return "", types.ValidationError("Please provide a valid email address.")
	}

	var user models.User
	err := a.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MsgResetUnknown, nil
	}
	if err != nil {
		return "", err
	}

	token, err := randomHex(32)
	if err != nil {
		return "", types.InternalError(err)
	}
	expiry := a.now().Add(resetLifetime)
	if err := a.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"reset_password_token":  hashToken(token),
		"reset_password_expiry": expiry,
	}).Error; err != nil {
		return "", err
	}

	link := fmt.Sprintf("%s/auth/resetpassword/%s", a.clientURL, token)
	body := fmt.Sprintf("<p>Hello %s,</p><p>Reset your password with this link, valid for 4 hours:</p><p><a href=\"%s\">%s</a></p>",
		user.Fullname, link, link)
	if err := a.mailer.Send(ctx, user.Email, "Password Reset", body); err != nil {
		a.log.Error().Err(err).Str("user", user.ID.String()).Msg("reset mail failed")
		a.db.WithContext(ctx).Model(&user).Updates(map[string]any{
			"reset_password_token":  "",
			"reset_password_expiry": nil,
		})
		return "", &types.CustomError{
			Code:    http.StatusInternalServerError,
			Message: "Failed to send reset email. Please try again later.",
			Type:    types.KindInternal,
			Err:     err,
		}
	}
	return MsgResetSent, nil
}

// ResetPassword replaces the password of the account holding an unexpired reset token.
func (a *Auth) ResetPassword(ctx context.Context, token, password string) (*mutation.Trace, error) {
	var user models.User
	_, trace, err := mutation.Run(ctx, a.engine, mutation.Op[*models.User]{
		Name: "user.resetpassword",
		Validate: mutation.NewSchema().
			Field("password", password, mutation.Required("Your new password is required")).
			Validate,
		Load: func(ctx context.Context) error {
			if token == "" {
				return types.ValidationError("Invalid token or token expired.")
			}
			err := a.db.WithContext(ctx).
				Where("reset_password_token = ? AND reset_password_expiry > ?", hashToken(token), a.now()).
				Take(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ValidationError("Invalid token or token expired.")
			}
			return err
		},
		Primary: func(ctx context.Context) (*models.User, error) {
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return nil, types.InternalError(err)
			}
			err = a.db.WithContext(ctx).Model(&user).Updates(map[string]any{
				"password_hash":         string(hash),
				"reset_password_token":  "",
				"reset_password_expiry": nil,
			}).Error
			return &user, err
		},
		Notify: func(u *models.User) []notify.Entry {
			return []notify.Entry{{
				Details:   "Your password was updated successfully",
				Type:      notify.TypeEdit,
				Ref:       notify.UserRef(u.ID),
				CreatedBy: u.ID,
			}}
		},
	})
	return trace, err
}

// Me loads the account behind a token.
func (a *Auth) Me(ctx context.Context, id types.ObjectID) (*models.User, error) {
	return first[models.User](ctx, a.db, id, "User not found")
}

// User loads an account by id, for the owner middleware.
func (a *Auth) User(ctx context.Context, id types.ObjectID) (*models.User, error) {
	return first[models.User](ctx, a.db, id, "User not found")
}

// EditProfile updates the non empty fields of the caller's account.
func (a *Auth) EditProfile(ctx context.Context, actor *models.User, in UserEditInput) (*models.User, *mutation.Trace, error) {
	return mutation.Run(ctx, a.engine, mutation.Op[*models.User]{
		Name:     "user.edit",
		Validate: in.schema().Validate,
		Load: func(ctx context.Context) error {
			if email := strings.TrimSpace(in.Email); email != "" && email != actor.Email {
				taken, err := exists[models.User](ctx, a.db, "email = ? AND id <> ?", email, actor.ID)
				if err != nil {
					return err
				}
				if taken {
					return types.ConflictError("Email already exists")
				}
			}
			if phone := strings.TrimSpace(in.Telephone); phone != "" {
				taken, err := exists[models.User](ctx, a.db, "telephone = ? AND id <> ?", phone, actor.ID)
				if err != nil {
					return err
				}
				if taken {
					return types.ConflictError("Telephone already exists")
				}
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.User, error) {
			actor.Fullname = pick(actor.Fullname, in.Fullname)
			actor.Email = pick(actor.Email, in.Email)
			actor.City = pick(actor.City, in.City)
			actor.Country = pick(actor.Country, in.Country)
			if phone := optional(in.Telephone); phone != nil {
				actor.Telephone = phone
			}
			actor.Version++
			if err := a.db.WithContext(ctx).Save(actor).Error; err != nil {
				return nil, err
			}
			return actor, nil
		},
		Notify: func(u *models.User) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("User %s has been updated successfully", u.Fullname),
				Type:      notify.TypeEdit,
				Ref:       notify.UserRef(u.ID),
				CreatedBy: u.ID,
			}}
		},
	})
}

func (a *Auth) session(user *models.User) (*Session, error) {
	token, expires, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, Expires: expires}, nil
}

// newOTP returns a six digit code.
func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken is the stored form of a reset token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

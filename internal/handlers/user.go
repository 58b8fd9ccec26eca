// user.go
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

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-crm/internal/middleware"
	"github.com/localnerve/jam-build-crm/internal/services"
	"github.com/localnerve/jam-build-crm/internal/utils"
)

// UserHandler handles account routes
type UserHandler struct {
	Auth *services.Auth
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Password string `json:"password"`
}

func sessionResponse(c *fiber.Ctx, status int, message string, user interface{}, token string, expires time.Time) error {
	return c.Status(status).JSON(utils.SessionResponseStruct{
		Success: true,
		Message: message,
		User:    user,
		Token:   token,
		Expires: expires.UTC().Format(time.RFC3339),
	})
}

// Register handles POST /api/user/register
// @Summary Register an account
// @Description Create an unverified account and mail its activation code
// @Tags User
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Account"
// @Success 201 {object} utils.SessionResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /user/register [post]
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	session, trace, err := h.Auth.Register(c.UserContext(), in)
	middleware.SetTrace(c, trace)
	if err != nil {
		return err
	}
	return sessionResponse(c, fiber.StatusCreated, "User created successfully. Please verify your email.",
		session.User, session.Token, session.Expires)
}

// Login handles POST /api/user/login
// @Summary Log in
// @Description Exchange email and password for a bearer token
// @Tags User
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} utils.SessionResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /user/login [post]
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}

	session, err := h.Auth.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return sessionResponse(c, fiber.StatusOK, "", nil, session.Token, session.Expires)
}

// VerifyOTP handles POST /api/user/otp
// @Summary Verify an account
// @Description Verify the account with the mailed activation code
// @Tags User
// @Accept json
// @Produce json
// @Param body body otpRequest true "Email and code"
// @Success 200 {object} utils.SessionResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /user/otp [post]
func (h *UserHandler) VerifyOTP(c *fiber.Ctx) error {
	var in otpRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}

	user, trace, err := h.Auth.VerifyOTP(c.UserContext(), in.Email, in.OTP)
	middleware.SetTrace(c, trace)
	if err != nil {
		return err
	}

	token, expires, err := h.Auth.Tokens().Issue(user.ID, user.Role)
	if err != nil {
		return err
	}
	return sessionResponse(c, fiber.StatusOK, "Email verified successfully.", nil, token, expires)
}

// ForgotPassword handles POST /api/user/forgotpassword
// @Summary Request a password reset
// @Description Mail a reset link. Unknown addresses get the same response.
// @Tags User
// @Accept json
// @Produce json
// @Param body body forgotRequest true "Email"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /user/forgotpassword [post]
func (h *UserHandler) ForgotPassword(c *fiber.Ctx) error {
	var in forgotRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}

	message, err := h.Auth.ForgotPassword(c.UserContext(), in.Email)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, message, nil)
}

// ResetPassword handles POST /api/user/resetpassword/:resetToken
// @Summary Reset a password
// @Description Set a new password with the mailed reset token
// @Tags User
// @Accept json
// @Produce json
// @Param resetToken path string true "Reset token"
// @Param body body resetRequest true "New password"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /user/resetpassword/{resetToken} [post]
func (h *UserHandler) ResetPassword(c *fiber.Ctx) error {
	var in resetRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}

	trace, err := h.Auth.ResetPassword(c.UserContext(), c.Params("resetToken"), in.Password)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Password reset successfully", nil)
}

// Me handles GET /api/user/fetch/me
// @Summary Current account
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /user/fetch/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := h.Auth.Me(c.UserContext(), middleware.Claims(c).UserID())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", user)
}

// Edit handles PUT /api/user/:ownerID/edit
// @Summary Edit the current account
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body services.UserEditInput true "Changed fields"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /user/{ownerID}/edit [put]
func (h *UserHandler) Edit(c *fiber.Ctx) error {
	var in services.UserEditInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	user, trace, err := h.Auth.EditProfile(c.UserContext(), middleware.Actor(c), in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "User edited successfully", user)
}

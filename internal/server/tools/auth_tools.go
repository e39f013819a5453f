package tools

import (
	"context"

	"github.com/dmitrijs2005/ledgerd/internal/server/envelope"
	"github.com/dmitrijs2005/ledgerd/internal/server/services"
)

func (r *Registry) registerAuthTools() {
	r.Register("register", r.register)
	r.Register("login", r.login)
	r.Register("verify_token", r.verifyToken)
	r.Register("change_password", r.changePassword)
	r.Register("send_verification_code", r.sendVerificationCode)
	r.Register("verify_email", r.verifyEmail)
	r.Register("forgot_password", r.forgotPassword)
	r.Register("reset_password", r.resetPassword)
}

func sessionFields(s *services.Session) envelope.Fields {
	return envelope.Fields{"user_id": s.UserID, "username": s.Username, "token": s.Token}
}

func (r *Registry) register(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	if err := required("username", a.Username, "email", a.Email, "password", a.Password); err != nil {
		return envelope.Envelope{}, err
	}

	sess, err := r.svc.Users.Register(ctx, a.Username, a.Email, a.Password, a.FullName)
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("User registered successfully", sessionFields(sess)), nil
}

func (r *Registry) login(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	if err := required("username", a.Username, "password", a.Password); err != nil {
		return envelope.Envelope{}, err
	}

	sess, err := r.svc.Users.Login(ctx, a.Username, a.Password)
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Login successful", sessionFields(sess)), nil
}

func (r *Registry) verifyToken(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token string `json:"token"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	claims, err := r.svc.Users.VerifyToken(tokenFrom(ctx, a.Token))
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Token is valid", envelope.Fields{
		"user_id":  claims.UserID,
		"username": claims.Username,
	}), nil
}

func (r *Registry) changePassword(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token       string `json:"token"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	err := r.authenticated(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		if err := required("old_password", a.OldPassword, "new_password", a.NewPassword); err != nil {
			return err
		}
		return r.svc.Users.ChangePassword(ctx, p, a.OldPassword, a.NewPassword)
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Password changed successfully", nil), nil
}

func (r *Registry) sendVerificationCode(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Token string `json:"token"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	var sent bool
	err := r.authenticated(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		sent, err = r.svc.Challenges.SendVerificationCode(ctx, p)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	if !sent {
		return envelope.Success("Email already verified", nil), nil
	}
	return envelope.Success("Verification code sent to your email", nil), nil
}

func (r *Registry) verifyEmail(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Code string `json:"code"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	if err := required("code", a.Code); err != nil {
		return envelope.Envelope{}, err
	}

	if err := r.svc.Challenges.VerifyEmail(ctx, a.Code); err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Email verified successfully", nil), nil
}

func (r *Registry) forgotPassword(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Email string `json:"email"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	if err := required("email", a.Email); err != nil {
		return envelope.Envelope{}, err
	}

	// одинаковый ответ для известного и неизвестного адреса
	if _, err := r.svc.Challenges.ForgotPassword(ctx, a.Email); err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("If this email exists, a reset code has been sent", nil), nil
}

func (r *Registry) resetPassword(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	if err := required("code", a.Code, "new_password", a.NewPassword); err != nil {
		return envelope.Envelope{}, err
	}

	u, err := r.svc.Challenges.ResetPassword(ctx, a.Code, a.NewPassword)
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Password reset successfully for "+u.UserName, nil), nil
}

package validation

// CheckPasswordRequest mirrors the fields of a login request.
type CheckPasswordRequest struct {
	Username string
	Password string
}

// ValidateCheckPassword validates a login request.
func ValidateCheckPassword(req CheckPasswordRequest) []FieldError {
	var errs []FieldError
	errs = required(errs, "username", req.Username)
	errs = required(errs, "password", req.Password)
	return errs
}

// ChangePasswordRequest mirrors the fields of a password change request.
type ChangePasswordRequest struct {
	Username        string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ValidateChangePassword validates a password change request.
func ValidateChangePassword(req ChangePasswordRequest) []FieldError {
	var errs []FieldError
	errs = required(errs, "username", req.Username)
	errs = required(errs, "current_password", req.CurrentPassword)
	errs = required(errs, "new_password", req.NewPassword)
	errs = required(errs, "confirm_password", req.ConfirmPassword)
	return errs
}

// RegisterUserRequest mirrors the fields of a registration request.
type RegisterUserRequest struct {
	Username string
	Email    string
	Password string
}

// ValidateRegisterUser validates a registration request.
func ValidateRegisterUser(req RegisterUserRequest) []FieldError {
	var errs []FieldError

	if req.Username == "" {
		errs = required(errs, "username", req.Username)
	} else {
		errs = maxLen(errs, "username", req.Username, MaxUsernameLen)
	}

	if req.Email == "" {
		errs = required(errs, "email", req.Email)
	} else {
		errs = maxLen(errs, "email", req.Email, MaxEmailLen)
	}

	errs = required(errs, "password", req.Password)

	return errs
}

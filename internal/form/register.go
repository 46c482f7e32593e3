package form

import (
	"context"
	"strings"
	"sync"

	"github.com/ayush/authgate/internal/validate"
)

// Mode selects how a RegisterForm proves ownership of the address.
type Mode int

const (
	// ModeDirect registers with email and password only.
	ModeDirect Mode = iota
	// ModeCode requires a mailed code to be verified before submit.
	ModeCode
	// ModeLink mails a link; the address is locked once the mail is sent.
	ModeLink
)

// RegisterState is a snapshot of a RegisterForm.
type RegisterState struct {
	Email       string
	EmailLocked bool
	CodeSent    bool
	Verified    bool

	Status    Status
	Sending   bool
	Verifying bool

	// FieldErrors is keyed by the Field* constants.
	FieldErrors map[string]string
	Error       string
	Success     string
}

// RegisterForm tracks registration input, verification progress and messages.
type RegisterForm struct {
	backend Backend
	mode    Mode

	mu              sync.Mutex
	email           string
	password        string
	passwordConfirm string
	code            string

	codeSent  bool
	verified  bool
	sending   bool
	verifying bool
	status    Status

	fieldErrors map[string]string
	errMsg      string
	success     string
}

func NewRegisterForm(backend Backend, mode Mode) *RegisterForm {
	return &RegisterForm{backend: backend, mode: mode, fieldErrors: map[string]string{}}
}

// Set updates one field. In ModeLink the email is read-only after the mail is sent.
// Changing the email in ModeCode drops an earlier verification.
func (f *RegisterForm) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case FieldEmail:
		if f.emailLocked() {
			return ErrFieldLocked
		}
		if value != f.email {
			f.verified = false
			f.codeSent = false
		}
		f.email = value
	case FieldPassword:
		f.password = value
	case FieldPasswordConfirm:
		f.passwordConfirm = value
	case FieldCode:
		f.code = value
	default:
		return ErrUnknownField
	}
	return nil
}

func (f *RegisterForm) emailLocked() bool {
	return (f.mode == ModeLink && f.codeSent) || f.sending || f.status == Submitting
}

// CanSubmit reports whether the submit trigger is enabled.
func (f *RegisterForm) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmit()
}

func (f *RegisterForm) canSubmit() bool {
	if f.status == Submitting {
		return false
	}
	switch f.mode {
	case ModeCode:
		return f.verified
	case ModeLink:
		return f.codeSent
	default:
		return true
	}
}

// State returns a snapshot of the form.
func (f *RegisterForm) State() RegisterState {
	f.mu.Lock()
	defer f.mu.Unlock()
	errs := make(map[string]string, len(f.fieldErrors))
	for k, v := range f.fieldErrors {
		errs[k] = v
	}
	return RegisterState{
		Email:       f.email,
		EmailLocked: f.emailLocked(),
		CodeSent:    f.codeSent,
		Verified:    f.verified,
		Status:      f.status,
		Sending:     f.sending,
		Verifying:   f.verifying,
		FieldErrors: errs,
		Error:       f.errMsg,
		Success:     f.success,
	}
}

// SendCode asks the server to mail a verification code (ModeCode) or link (ModeLink).
func (f *RegisterForm) SendCode(ctx context.Context) error {
	f.mu.Lock()
	if f.sending {
		f.mu.Unlock()
		return ErrInFlight
	}
	delete(f.fieldErrors, FieldEmail)
	f.success = ""
	if err := validate.Email(f.email); err != nil {
		f.fieldErrors[FieldEmail] = err.Error()
		f.mu.Unlock()
		return nil
	}
	f.sending = true
	email := strings.TrimSpace(f.email)
	f.mu.Unlock()

	msg, err := f.backend.SendVerificationCode(ctx, email)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sending = false
	if err != nil {
		f.fieldErrors[FieldEmail] = failureMessage(err, MsgSendFailed)
		return nil
	}
	f.codeSent = true
	f.verified = false
	f.success = msg
	if f.mode == ModeLink {
		if msg != "" {
			f.success = msg + ". " + MsgCheckInbox
		} else {
			f.success = MsgCheckInbox
		}
	}
	return nil
}

// VerifyCode checks the entered code with the server.
func (f *RegisterForm) VerifyCode(ctx context.Context) error {
	f.mu.Lock()
	if f.verifying {
		f.mu.Unlock()
		return ErrInFlight
	}
	delete(f.fieldErrors, FieldCode)
	f.success = ""
	if err := validate.Code(f.code); err != nil {
		f.fieldErrors[FieldCode] = err.Error()
		f.mu.Unlock()
		return nil
	}
	f.verifying = true
	email, code := strings.TrimSpace(f.email), strings.TrimSpace(f.code)
	f.mu.Unlock()

	msg, err := f.backend.VerifyCode(ctx, email, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifying = false
	if err != nil {
		f.verified = false
		f.fieldErrors[FieldCode] = failureMessage(err, MsgVerifyFailed)
		return nil
	}
	f.verified = true
	f.success = msg
	return nil
}

// Submit validates the input and registers. The confirmation is never sent.
func (f *RegisterForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.status == Submitting {
		f.mu.Unlock()
		return ErrInFlight
	}
	f.errMsg = ""
	f.success = ""
	f.fieldErrors = map[string]string{}

	if !f.canSubmit() {
		f.status = Failed
		if f.mode == ModeCode {
			f.errMsg = MsgVerifyFirst
		} else {
			f.errMsg = MsgSendFirst
		}
		f.mu.Unlock()
		return nil
	}

	if err := validate.Email(f.email); err != nil {
		f.fieldErrors[FieldEmail] = err.Error()
	}
	if err := validate.Password(f.password); err != nil {
		f.fieldErrors[FieldPassword] = err.Error()
	}
	if err := validate.Confirm(f.password, f.passwordConfirm); err != nil {
		f.fieldErrors[FieldPasswordConfirm] = err.Error()
	}
	if len(f.fieldErrors) > 0 {
		f.status = Failed
		f.errMsg = MsgInvalidInput
		f.mu.Unlock()
		return nil
	}

	f.status = Submitting
	email, password := strings.TrimSpace(f.email), f.password
	f.mu.Unlock()

	msg, err := f.backend.Register(ctx, email, password)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.status = Failed
		f.errMsg = failureMessage(err, MsgRegisterFailed)
		return nil
	}
	f.status = Succeeded
	f.success = msg
	f.password = ""
	f.passwordConfirm = ""
	return nil
}

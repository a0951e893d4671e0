// Package wizard drives the statement import flow on the client side:
// upload, optional password, date range, optional clarification and done.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

// State is a step of the wizard.
type State string

const (
	StateUpload    State = "upload"
	StatePassword  State = "password"
	StateDateRange State = "date_range"
	StateClarify   State = "clarify"
	StateDone      State = "done"
)

// DefaultAutoReturnDelay is how long the result stays on screen after a
// successful import.
const DefaultAutoReturnDelay = 2 * time.Second

const reuploadMessage = "Your upload expired, please upload the statement again."

var (
	// ErrBusy rejects a trigger while a request is in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrInvalidFileType rejects a file before any request is made.
	ErrInvalidFileType = errors.New("please choose a .csv, .pdf, .xlsx or .xls file")
	// ErrWrongState rejects a trigger that does not belong to the current step.
	ErrWrongState = errors.New("action not available in this step")
	// ErrUnknownItem rejects a choice for an index that was not offered.
	ErrUnknownItem = errors.New("no ambiguous transaction with that index")
)

// ImportAPI is the server surface the wizard needs.
type ImportAPI interface {
	UploadStatement(ctx context.Context, req *v1.UploadStatementRequest) (*v1.UploadStatementResponse, error)
	SelectDateRange(ctx context.Context, req *v1.SelectDateRangeRequest) (*v1.SelectDateRangeResponse, error)
	ImportTransactions(ctx context.Context, req *v1.ImportTransactionsRequest) (*v1.ImportTransactionsResponse, error)
	CancelUpload(ctx context.Context, sessionID string) error
}

// View is a snapshot of the wizard for rendering.
type View struct {
	State            State
	Busy             bool
	Filename         string
	FileType         string
	TransactionCount int
	DateRange        *v1.DateRange
	Preview          []*v1.Transaction
	Range            *v1.SelectDateRangeResponse
	Choices          map[int]string
	Result           *v1.ImportTransactionsResponse
	// Message is the latest user-facing error or notice.
	Message string
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithClearPrevious replaces the user's expenses on import.
func WithClearPrevious(clear bool) Option {
	return func(w *Wizard) { w.clearPrevious = clear }
}

// WithAutoReturn sets the delay and the callback fired after a successful
// import. The callback runs on its own goroutine.
func WithAutoReturn(delay time.Duration, fn func()) Option {
	return func(w *Wizard) {
		w.autoReturnDelay = delay
		w.onAutoReturn = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) { w.logger = logger }
}

// Wizard is safe for concurrent use; at most one request runs at a time.
type Wizard struct {
	api             ImportAPI
	clearPrevious   bool
	autoReturnDelay time.Duration
	onAutoReturn    func()
	logger          *slog.Logger

	mu        sync.Mutex
	state     State
	busy      bool
	filename  string
	data      []byte
	sessionID string
	upload    *v1.UploadStatementResponse
	rng       *v1.SelectDateRangeResponse
	choices   map[int]string
	result    *v1.ImportTransactionsResponse
	message   string
	timer     *time.Timer
}

// New returns a wizard in the upload step.
func New(api ImportAPI, opts ...Option) *Wizard {
	w := &Wizard{
		api:             api,
		autoReturnDelay: DefaultAutoReturnDelay,
		logger:          slog.Default(),
		state:           StateUpload,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current step.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// View returns a copy of everything a renderer needs.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		State:    w.state,
		Busy:     w.busy,
		Filename: w.filename,
		Range:    w.rng,
		Choices:  maps.Clone(w.choices),
		Result:   w.result,
		Message:  w.message,
	}
	if w.upload != nil {
		v.FileType = w.upload.FileType
		v.TransactionCount = w.upload.TransactionCount
		v.DateRange = w.upload.DateRange
		v.Preview = w.upload.Preview
	}
	return v
}

// begin marks the wizard busy if it is in one of the allowed states.
func (w *Wizard) begin(allowed ...State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	for _, s := range allowed {
		if w.state == s {
			w.busy = true
			w.message = ""
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongState, w.state)
}

// end clears the busy flag; it must be called with mu held.
func (w *Wizard) end() { w.busy = false }

// SelectFile uploads a statement. The extension is checked locally first.
func (w *Wizard) SelectFile(ctx context.Context, filename string, data []byte) error {
	if !v1.SupportedStatement(filename) {
		w.mu.Lock()
		if w.state == StateUpload {
			w.message = ErrInvalidFileType.Error()
		}
		w.mu.Unlock()
		return ErrInvalidFileType
	}
	if err := w.begin(StateUpload); err != nil {
		return err
	}

	resp, err := w.api.UploadStatement(ctx, &v1.UploadStatementRequest{
		Filename:      filename,
		Content:       data,
		ClearPrevious: w.clearPrevious,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.end()

	if err != nil {
		w.message = userMessage(err)
		return err
	}
	w.filename = filename
	w.applyUpload(resp, data)
	return nil
}

// SubmitPassword retries the upload with a password. A wrong password keeps
// the wizard in the password step.
func (w *Wizard) SubmitPassword(ctx context.Context, password string) error {
	if err := w.begin(StatePassword); err != nil {
		return err
	}
	w.mu.Lock()
	filename, data := w.filename, w.data
	w.mu.Unlock()

	resp, err := w.api.UploadStatement(ctx, &v1.UploadStatementRequest{
		Filename:      filename,
		Content:       data,
		Password:      password,
		ClearPrevious: w.clearPrevious,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.end()

	if err != nil {
		w.message = userMessage(err)
		if connect.CodeOf(err) == connect.CodeInvalidArgument {
			// The file itself is unreadable; another password will not help.
			w.resetLocked()
			w.message = userMessage(err)
		}
		return err
	}
	w.applyUpload(resp, data)
	return nil
}

func (w *Wizard) applyUpload(resp *v1.UploadStatementResponse, data []byte) {
	if resp.Status == v1.UploadStatusPasswordRequired {
		w.data = data
		w.state = StatePassword
		w.message = resp.Message
		return
	}
	w.data = nil
	w.upload = resp
	w.sessionID = resp.SessionID
	w.state = StateDateRange
}

// SelectRange filters the upload to [start, end] (YYYY-MM-DD). Without
// ambiguous transactions the import runs right away.
func (w *Wizard) SelectRange(ctx context.Context, start, end string) error {
	if err := w.begin(StateDateRange); err != nil {
		return err
	}
	w.mu.Lock()
	sessionID := w.sessionID
	w.mu.Unlock()

	resp, err := w.api.SelectDateRange(ctx, &v1.SelectDateRangeRequest{
		SessionID: sessionID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		w.mu.Lock()
		defer w.mu.Unlock()
		defer w.end()
		w.fail(err)
		return err
	}

	if resp.NeedsClarification {
		w.mu.Lock()
		defer w.mu.Unlock()
		defer w.end()
		w.rng = resp
		w.choices = make(map[int]string, len(resp.AmbiguousItems))
		for _, it := range resp.AmbiguousItems {
			w.choices[it.Index] = it.SuggestedCategory
		}
		w.state = StateClarify
		return nil
	}

	w.mu.Lock()
	w.rng = resp
	w.choices = nil
	w.mu.Unlock()
	return w.commit(ctx, sessionID, nil)
}

// SetChoice sets the category for one ambiguous item.
func (w *Wizard) SetChoice(index int, category string) error {
	canonical, ok := common.CanonicalCategory(category)
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrInvalidCategory, category)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	if w.state != StateClarify {
		return fmt.Errorf("%w: %s", ErrWrongState, w.state)
	}
	if _, ok := w.choices[index]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, index)
	}
	w.choices[index] = canonical
	return nil
}

// SubmitClarifications imports with the chosen categories.
func (w *Wizard) SubmitClarifications(ctx context.Context) error {
	if err := w.begin(StateClarify); err != nil {
		return err
	}
	w.mu.Lock()
	sessionID := w.sessionID
	choices := maps.Clone(w.choices)
	w.mu.Unlock()

	return w.commit(ctx, sessionID, choices)
}

// commit runs the import; the caller holds the busy flag.
func (w *Wizard) commit(ctx context.Context, sessionID string, choices map[int]string) error {
	resp, err := w.api.ImportTransactions(ctx, &v1.ImportTransactionsRequest{
		SessionID:      sessionID,
		Clarifications: choices,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.end()

	if err != nil {
		w.fail(err)
		return err
	}
	w.result = resp
	w.sessionID = ""
	w.state = StateDone
	w.message = resp.Message
	if resp.Imported > 0 {
		w.scheduleAutoReturn()
	}
	return nil
}

// fail records err; an expired session sends the user back to upload.
func (w *Wizard) fail(err error) {
	if connect.CodeOf(err) == connect.CodeNotFound {
		w.resetLocked()
		w.message = reuploadMessage
		return
	}
	w.message = userMessage(err)
}

func (w *Wizard) scheduleAutoReturn() {
	if w.autoReturnDelay <= 0 {
		return
	}
	w.timer = time.AfterFunc(w.autoReturnDelay, func() {
		w.mu.Lock()
		if w.state != StateDone {
			w.mu.Unlock()
			return
		}
		w.resetLocked()
		fn := w.onAutoReturn
		w.mu.Unlock()

		if fn != nil {
			fn()
		}
	})
}

// Cancel leaves any non-terminal step for upload and drops the server
// session. Failing to drop it is only logged; the server expires it anyway.
func (w *Wizard) Cancel(ctx context.Context) error {
	if err := w.begin(StateUpload, StatePassword, StateDateRange, StateClarify); err != nil {
		return err
	}
	w.mu.Lock()
	sessionID := w.sessionID
	w.mu.Unlock()

	if sessionID != "" {
		if err := w.api.CancelUpload(ctx, sessionID); err != nil && connect.CodeOf(err) != connect.CodeNotFound {
			w.logger.WarnContext(ctx, "failed to cancel upload session",
				slog.String("session_id", sessionID), slog.Any("error", err))
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.end()
	w.resetLocked()
	return nil
}

// Reset returns to upload from done, for example when the user closes the
// result before the auto return.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	if w.state != StateDone {
		return fmt.Errorf("%w: %s", ErrWrongState, w.state)
	}
	w.resetLocked()
	return nil
}

func (w *Wizard) resetLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.state = StateUpload
	w.filename = ""
	w.data = nil
	w.sessionID = ""
	w.upload = nil
	w.rng = nil
	w.choices = nil
	w.result = nil
	w.message = ""
}

// userMessage extracts the server's message without the code prefix.
func userMessage(err error) string {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr.Message()
	}
	return err.Error()
}

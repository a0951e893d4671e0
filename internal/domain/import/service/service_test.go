package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/classifier"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/extractor"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/budget-tracker/internal/domain/import/session"
)

const walmartCSV = `Date,Description,Amount
2024-01-05,Walmart Groceries,$50.00
2024-01-10,Walmart Groceries,$30.00
2024-01-15,Uber,$12.00
`

type fakeRepo struct {
	mu          sync.Mutex
	externalIDs map[string]bool
	rules       map[string]*repository.MerchantRule
	batches     []*repository.ImportBatch
	failed      []*repository.ImportJob
	commitErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		externalIDs: make(map[string]bool),
		rules:       make(map[string]*repository.MerchantRule),
	}
}

func (f *fakeRepo) GetRule(_ context.Context, _ uuid.UUID, merchant string) (*repository.MerchantRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[merchant]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeRepo) UpsertRule(_ context.Context, userID uuid.UUID, merchant, category string) (*repository.MerchantRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsert(userID, merchant, category), nil
}

func (f *fakeRepo) upsert(userID uuid.UUID, merchant, category string) *repository.MerchantRule {
	r, ok := f.rules[merchant]
	switch {
	case !ok:
		r = &repository.MerchantRule{UserID: userID, MerchantName: merchant, Category: category, Confidence: 1}
		f.rules[merchant] = r
	case r.Category == category:
		r.Confidence++
	default:
		r.Category = category
		r.Confidence = 1
	}
	c := *r
	return &c
}

func (f *fakeRepo) ListRules(context.Context, uuid.UUID) ([]*repository.MerchantRule, error) {
	return nil, nil
}

func (f *fakeRepo) DeleteRule(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeRepo) ListLabeledDescriptions(context.Context, uuid.UUID, int) ([]repository.LabeledDescription, error) {
	return nil, nil
}

func (f *fakeRepo) CommitImport(_ context.Context, batch *repository.ImportBatch) (*repository.CommitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		err := f.commitErr
		f.commitErr = nil
		return nil, err
	}
	f.batches = append(f.batches, batch)

	res := &repository.CommitResult{JobID: uuid.New()}
	for _, e := range batch.Expenses {
		if f.externalIDs[e.ExternalID] {
			res.Skipped++
			continue
		}
		f.externalIDs[e.ExternalID] = true
		res.Inserted++
	}
	for _, u := range batch.Rules {
		res.Rules = append(res.Rules, *f.upsert(batch.UserID, u.MerchantName, u.Category))
	}
	return res, nil
}

func (f *fakeRepo) RecordFailedImport(_ context.Context, job *repository.ImportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, job)
	return nil
}

func (f *fakeRepo) ListImportJobs(_ context.Context, _ uuid.UUID, limit int) ([]*repository.ImportJob, error) {
	jobs := make([]*repository.ImportJob, 0, limit)
	for i := 0; i < limit; i++ {
		jobs = append(jobs, &repository.ImportJob{ID: uuid.New()})
	}
	return jobs, nil
}

func (f *fakeRepo) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// fixedClassifier returns a preset suggestion per description and Other/high
// for everything else.
type fixedClassifier map[string]classifier.Suggestion

func (f fixedClassifier) ClassifyBatch(_ context.Context, _ uuid.UUID, inputs []classifier.Input) []classifier.Suggestion {
	out := make([]classifier.Suggestion, len(inputs))
	for i, in := range inputs {
		s, ok := f[in.Description]
		if !ok {
			s = classifier.Suggestion{Category: common.CategoryOther, Confidence: common.ConfidenceHigh, Source: "test"}
		}
		out[i] = s
	}
	return out
}

var walmartUber = fixedClassifier{
	"Walmart Groceries": {
		Category:     common.CategoryOther,
		Confidence:   common.ConfidenceLow,
		Reasoning:    "Unclear merchant",
		Alternatives: []string{common.CategoryGroceries},
		Source:       classifier.SourceAI,
	},
	"Uber": {
		Category:   common.CategoryTransport,
		Confidence: common.ConfidenceHigh,
		Reasoning:  `Description mentions "uber"`,
		Source:     classifier.SourceKeyword,
	},
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
	imported int
	skipped  int
}

func (m *recordingMetrics) UploadProcessed(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) TransactionClassified(string, common.Confidence) {}

func (m *recordingMetrics) ImportCommitted(imported, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imported += imported
	m.skipped += skipped
}

func (m *recordingMetrics) ActiveSessions(int) {}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(uuid.UUID) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

type lockedPDF struct {
	password string
	text     string
}

func (p lockedPDF) ExtractText(_ context.Context, _ []byte, password string) (string, error) {
	if password != p.password {
		return "", extractor.ErrEncrypted
	}
	return p.text, nil
}

type testEnv struct {
	svc      *ImportService
	repo     *fakeRepo
	sessions *session.Store
	metrics  *recordingMetrics
	learner  *countingInvalidator
}

func newTestEnv(t *testing.T, cl BatchClassifier, pdf extractor.TextExtractor) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		repo:     newFakeRepo(),
		sessions: session.NewStore(session.DefaultTTL, logger),
		metrics:  &recordingMetrics{},
		learner:  &countingInvalidator{},
	}
	env.svc = NewImportService(Deps{
		Repo:       env.repo,
		Extractor:  extractor.New(pdf, logger),
		Classifier: cl,
		Sessions:   env.sessions,
		Learner:    env.learner,
		Metrics:    env.metrics,
		Logger:     logger,
	})
	return env
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func upload(t *testing.T, env *testEnv, userID uuid.UUID, csv string) *UploadResult {
	t.Helper()
	res, err := env.svc.UploadStatement(context.Background(), userID, UploadRequest{
		Filename: "statement.csv",
		Data:     []byte(csv),
	})
	if err != nil {
		t.Fatalf("UploadStatement failed: %v", err)
	}
	return res
}

func TestImportFlow_WalmartUber(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()

	up := upload(t, env, userID, walmartCSV)
	if up.Status != extractor.StatusExtracted || up.FileType != extractor.FileTypeCSV {
		t.Fatalf("unexpected upload status: %+v", up)
	}
	if up.TransactionCount != 3 || len(up.Preview) != 3 {
		t.Fatalf("expected 3 transactions, got %d (preview %d)", up.TransactionCount, len(up.Preview))
	}
	if !up.DateRange.MinDate.Equal(day("2024-01-05")) || !up.DateRange.MaxDate.Equal(day("2024-01-15")) {
		t.Fatalf("unexpected date range: %+v", up.DateRange)
	}

	rng, err := env.svc.SelectDateRange(ctx, userID, up.SessionID, day("2024-01-01"), day("2024-01-31"))
	if err != nil {
		t.Fatalf("SelectDateRange failed: %v", err)
	}
	if !rng.NeedsClarification || rng.FilteredCount != 3 || rng.ClearCount != 1 {
		t.Fatalf("unexpected range result: %+v", rng)
	}
	if len(rng.AmbiguousItems) != 1 {
		t.Fatalf("expected 1 ambiguous item, got %d", len(rng.AmbiguousItems))
	}
	item := rng.AmbiguousItems[0]
	if item.Index != 0 || item.TransactionCount != 2 || item.NormalizedMerchant != "walmart groceries" {
		t.Fatalf("unexpected ambiguous item: %+v", item)
	}
	if !strings.HasSuffix(item.Reasoning, "(2 similar transactions)") {
		t.Fatalf("reasoning missing group size: %q", item.Reasoning)
	}

	res, err := env.svc.ImportTransactions(ctx, userID, up.SessionID, map[int]string{0: "Groceries"})
	if err != nil {
		t.Fatalf("ImportTransactions failed: %v", err)
	}
	if res.Total != 3 || res.Imported != 3 || res.Skipped != 0 {
		t.Fatalf("unexpected import result: %+v", res)
	}

	batch := env.repo.batches[0]
	got := []string{batch.Expenses[0].Category, batch.Expenses[1].Category, batch.Expenses[2].Category}
	want := []string{common.CategoryGroceries, common.CategoryGroceries, common.CategoryTransport}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected categories: got %v, want %v", got, want)
	}
	if !batch.Expenses[0].Amount.IsPositive() {
		t.Fatalf("stored amounts must be absolute, got %s", batch.Expenses[0].Amount)
	}
	if len(res.Learned) != 1 || res.Learned[0].MerchantName != "walmart groceries" || res.Learned[0].Confidence != 1 {
		t.Fatalf("unexpected learned rules: %+v", res.Learned)
	}
	if env.learner.calls != 1 {
		t.Fatalf("expected model invalidation after import, got %d", env.learner.calls)
	}

	_, err = env.svc.ImportTransactions(ctx, userID, up.SessionID, nil)
	if !errors.Is(err, common.ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound on second import, got %v", err)
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("session should be removed after import")
	}
}

func TestImportTransactions_ReimportSkipsDuplicates(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()

	for i, wantImported := range []int{3, 0} {
		up := upload(t, env, userID, walmartCSV)
		res, err := env.svc.ImportTransactions(ctx, userID, up.SessionID, map[int]string{0: "Groceries"})
		if err != nil {
			t.Fatalf("import %d failed: %v", i, err)
		}
		if res.Imported != wantImported || res.Total != 3 {
			t.Fatalf("import %d: unexpected result %+v", i, res)
		}
	}
	if env.metrics.imported != 3 || env.metrics.skipped != 3 {
		t.Fatalf("unexpected metrics: imported %d skipped %d", env.metrics.imported, env.metrics.skipped)
	}
	if r := env.repo.rules["walmart groceries"]; r == nil || r.Confidence != 2 {
		t.Fatalf("confirming a rule twice should raise its confidence, got %+v", r)
	}
}

func TestSelectDateRange_Idempotent(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	first, err := env.svc.SelectDateRange(ctx, userID, up.SessionID, day("2024-01-01"), day("2024-01-31"))
	if err != nil {
		t.Fatalf("first SelectDateRange failed: %v", err)
	}
	second, err := env.svc.SelectDateRange(ctx, userID, up.SessionID, day("2024-01-01"), day("2024-01-31"))
	if err != nil {
		t.Fatalf("second SelectDateRange failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestSelectDateRange_InclusiveBounds(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	// Bounds carrying a time of day still compare by calendar date.
	rng, err := env.svc.SelectDateRange(ctx, userID, up.SessionID,
		day("2024-01-10").Add(15*time.Hour), day("2024-01-15"))
	if err != nil {
		t.Fatalf("SelectDateRange failed: %v", err)
	}
	if rng.FilteredCount != 2 {
		t.Fatalf("expected 2 transactions in range, got %d", rng.FilteredCount)
	}
	if rng.AmbiguousItems[0].Index != 0 || rng.AmbiguousItems[0].TransactionCount != 1 {
		t.Fatalf("unexpected item: %+v", rng.AmbiguousItems[0])
	}
}

func TestSelectDateRange_EmptyRangeImportsNothing(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	rng, err := env.svc.SelectDateRange(ctx, userID, up.SessionID, day("2023-01-01"), day("2023-01-31"))
	if err != nil {
		t.Fatalf("SelectDateRange failed: %v", err)
	}
	if rng.NeedsClarification || rng.FilteredCount != 0 {
		t.Fatalf("unexpected range result: %+v", rng)
	}

	res, err := env.svc.ImportTransactions(ctx, userID, up.SessionID, nil)
	if err != nil {
		t.Fatalf("ImportTransactions failed: %v", err)
	}
	if res.Total != 0 || res.Imported != 0 {
		t.Fatalf("expected 0/0, got %+v", res)
	}
	if env.repo.commits() != 0 {
		t.Fatalf("nothing should be committed")
	}
}

func TestSelectDateRange_Errors(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	_, err := env.svc.SelectDateRange(ctx, userID, up.SessionID, day("2024-02-01"), day("2024-01-01"))
	if !errors.Is(err, common.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}

	_, err = env.svc.SelectDateRange(ctx, uuid.New(), up.SessionID, day("2024-01-01"), day("2024-01-31"))
	if !errors.Is(err, common.ErrUploadNotFound) {
		t.Fatalf("foreign user: expected ErrUploadNotFound, got %v", err)
	}

	_, err = env.svc.SelectDateRange(ctx, userID, "missing", day("2024-01-01"), day("2024-01-31"))
	if !errors.Is(err, common.ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound, got %v", err)
	}
}

func TestImportTransactions_ClarificationIndexOutOfRange(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	_, err := env.svc.ImportTransactions(ctx, userID, up.SessionID, map[int]string{7: "Groceries"})
	if !errors.Is(err, common.ErrInvalidClarification) {
		t.Fatalf("expected ErrInvalidClarification, got %v", err)
	}

	// The session is still usable after a rejected request.
	if _, err := env.svc.ImportTransactions(ctx, userID, up.SessionID, nil); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestImportTransactions_UnknownCategoryIsNotLearned(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	res, err := env.svc.ImportTransactions(ctx, userID, up.SessionID, map[int]string{0: "Pets"})
	if err != nil {
		t.Fatalf("ImportTransactions failed: %v", err)
	}
	batch := env.repo.batches[0]
	if batch.Expenses[0].Category != common.CategoryUncategorized {
		t.Fatalf("expected Uncategorized, got %s", batch.Expenses[0].Category)
	}
	// The second Walmart row keeps its own suggestion.
	if batch.Expenses[1].Category != common.CategoryOther {
		t.Fatalf("expected Other, got %s", batch.Expenses[1].Category)
	}
	if len(batch.Rules) != 0 || len(res.Learned) != 0 {
		t.Fatalf("invalid categories must not be learned: %+v", batch.Rules)
	}
}

func TestImportTransactions_FailedCommitReleasesSession(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	env.repo.commitErr = errors.New("connection reset")
	if _, err := env.svc.ImportTransactions(ctx, userID, up.SessionID, nil); err == nil {
		t.Fatalf("expected commit error")
	}
	if len(env.repo.failed) != 1 || env.repo.failed[0].RowsTotal != 3 {
		t.Fatalf("failed import should be recorded, got %+v", env.repo.failed)
	}

	res, err := env.svc.ImportTransactions(ctx, userID, up.SessionID, nil)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if res.Imported != 3 {
		t.Fatalf("expected 3 imported on retry, got %d", res.Imported)
	}
}

func TestImportTransactions_ConcurrentCallsImportOnce(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.svc.ImportTransactions(context.Background(), userID, up.SessionID, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, common.ErrUploadNotFound):
				notFound++
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 || notFound != callers-1 {
		t.Fatalf("expected exactly one import, got %d successes and %d not found", successes, notFound)
	}
	if env.repo.commits() != 1 {
		t.Fatalf("expected 1 commit, got %d", env.repo.commits())
	}
}

func TestUploadStatement_PasswordFlow(t *testing.T) {
	text := "05 Jan 2024  Coffee shop  4.50\n06 Jan 2024  Salary credited  1,000.00 Cr\n"
	env := newTestEnv(t, fixedClassifier{}, lockedPDF{password: "secret", text: text})
	ctx := context.Background()
	userID := uuid.New()
	data := []byte("%PDF-1.4 /Encrypt")

	res, err := env.svc.UploadStatement(ctx, userID, UploadRequest{Filename: "stmt.pdf", Data: data})
	if err != nil {
		t.Fatalf("UploadStatement failed: %v", err)
	}
	if res.Status != extractor.StatusPasswordRequired || res.SessionID != "" {
		t.Fatalf("expected password_required without session, got %+v", res)
	}

	_, err = env.svc.UploadStatement(ctx, userID, UploadRequest{Filename: "stmt.pdf", Data: data, Password: "nope"})
	if !errors.Is(err, common.ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}

	res, err = env.svc.UploadStatement(ctx, userID, UploadRequest{Filename: "stmt.pdf", Data: data, Password: "secret"})
	if err != nil {
		t.Fatalf("UploadStatement with password failed: %v", err)
	}
	if res.Status != extractor.StatusExtracted || res.TransactionCount != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	want := []string{OutcomePasswordRequired, OutcomeWrongPassword, OutcomeExtracted}
	if !reflect.DeepEqual(env.metrics.outcomes, want) {
		t.Fatalf("unexpected outcomes: %v", env.metrics.outcomes)
	}
	if env.sessions.Len() != 1 {
		t.Fatalf("expected one session, got %d", env.sessions.Len())
	}
}

func TestUploadStatement_Rejections(t *testing.T) {
	env := newTestEnv(t, fixedClassifier{}, nil)
	ctx := context.Background()

	_, err := env.svc.UploadStatement(ctx, uuid.New(), UploadRequest{Filename: "notes.txt", Data: []byte("x")})
	if !errors.Is(err, common.ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	_, err = env.svc.UploadStatement(ctx, uuid.New(), UploadRequest{Filename: "empty.csv", Data: []byte("Date,Description,Amount\n")})
	if !errors.Is(err, common.ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
	if env.sessions.Len() != 0 {
		t.Fatalf("failed uploads must not create sessions")
	}
}

func TestCancelUpload(t *testing.T) {
	env := newTestEnv(t, walmartUber, nil)
	ctx := context.Background()
	userID := uuid.New()
	up := upload(t, env, userID, walmartCSV)

	if err := env.svc.CancelUpload(ctx, uuid.New(), up.SessionID); !errors.Is(err, common.ErrUploadNotFound) {
		t.Fatalf("foreign cancel: expected ErrUploadNotFound, got %v", err)
	}
	if err := env.svc.CancelUpload(ctx, userID, up.SessionID); err != nil {
		t.Fatalf("CancelUpload failed: %v", err)
	}
	if _, err := env.svc.SelectDateRange(ctx, userID, up.SessionID, day("2024-01-01"), day("2024-01-31")); !errors.Is(err, common.ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound after cancel, got %v", err)
	}
}

func TestGroupAmbiguous(t *testing.T) {
	txns := []session.ExtractedTransaction{
		{Description: "UPI-RAMESH-12345678", Confidence: common.ConfidenceLow, Reasoning: "Looks like a person", SuggestedCategory: common.CategoryOther},
		{Description: "Uber", Confidence: common.ConfidenceHigh},
		{Description: "upi-ramesh-99999999", Confidence: common.ConfidenceMedium, SuggestedCategory: common.CategoryTransport},
		{Description: "Corner Deli", Confidence: common.ConfidenceMedium},
	}

	items, members := GroupAmbiguous(txns)
	if members != 3 || len(items) != 2 {
		t.Fatalf("expected 2 groups over 3 rows, got %d groups over %d rows", len(items), members)
	}
	first := items[0]
	if first.Index != 0 || first.TransactionCount != 2 || first.NormalizedMerchant != "ramesh" {
		t.Fatalf("unexpected first group: %+v", first)
	}
	// first-seen member supplies the suggestion
	if first.SuggestedCategory != common.CategoryOther || first.Confidence != common.ConfidenceLow {
		t.Fatalf("group should keep the first suggestion: %+v", first)
	}
	if first.Reasoning != "Looks like a person (2 similar transactions)" {
		t.Fatalf("unexpected reasoning: %q", first.Reasoning)
	}
	if items[1].Index != 3 || items[1].TransactionCount != 1 {
		t.Fatalf("unexpected second group: %+v", items[1])
	}
}

func TestBuildBatch_UncategorizedAppliesToWholeGroup(t *testing.T) {
	txns := []session.ExtractedTransaction{
		{Description: "Walmart Groceries", SuggestedCategory: common.CategoryGroceries, Confidence: common.ConfidenceMedium},
		{Description: "Walmart Groceries", SuggestedCategory: common.CategoryShopping, Confidence: common.ConfidenceMedium},
	}
	items, _ := GroupAmbiguous(txns)
	if len(items) != 1 || items[0].TransactionCount != 2 {
		t.Fatalf("expected one group of 2, got %+v", items)
	}

	batch := buildBatch(uuid.New(), &session.UploadSession{Filename: "s.csv", FileType: "csv"}, txns,
		map[int]string{items[0].Index: "uncategorized"})
	for i, e := range batch.Expenses {
		if e.Category != common.CategoryUncategorized {
			t.Fatalf("row %d: expected Uncategorized, got %s", i, e.Category)
		}
	}
	if len(batch.Rules) != 0 {
		t.Fatalf("Uncategorized must not be learned: %+v", batch.Rules)
	}
}

func TestBuildBatch_DescriptionsWithoutMerchantName(t *testing.T) {
	txns := []session.ExtractedTransaction{
		{Description: "1234567890", SuggestedCategory: common.CategoryOther, Confidence: common.ConfidenceLow},
		{Description: "***", SuggestedCategory: common.CategoryOther, Confidence: common.ConfidenceLow},
		{Description: " 1234567890 ", SuggestedCategory: common.CategoryOther, Confidence: common.ConfidenceLow},
	}
	items, members := GroupAmbiguous(txns)
	if members != 3 || len(items) != 2 {
		t.Fatalf("expected 2 groups over 3 rows, got %d groups over %d rows", len(items), members)
	}
	if items[0].Index != 0 || items[0].TransactionCount != 2 || items[1].Index != 1 || items[1].TransactionCount != 1 {
		t.Fatalf("unexpected groups: %+v", items)
	}

	batch := buildBatch(uuid.New(), &session.UploadSession{Filename: "s.csv", FileType: "csv"}, txns,
		map[int]string{items[0].Index: common.CategoryRent})
	got := []string{batch.Expenses[0].Category, batch.Expenses[1].Category, batch.Expenses[2].Category}
	want := []string{common.CategoryRent, common.CategoryOther, common.CategoryRent}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	if len(batch.Rules) != 0 {
		t.Fatalf("rows without a merchant name must not be learned: %+v", batch.Rules)
	}
}

func TestBuildDateRange(t *testing.T) {
	var txns []session.ExtractedTransaction
	end := day("2024-12-31")
	for _, back := range []int{0, 10, 45, 100, 200, 400} {
		txns = append(txns, session.ExtractedTransaction{Date: end.AddDate(0, 0, -back)})
	}

	dr := BuildDateRange(txns)
	if dr.TotalDays != 400 || !dr.MaxDate.Equal(end) {
		t.Fatalf("unexpected range: %+v", dr)
	}
	wantLabels := []string{
		"All Transactions",
		"Last 1 Month (2 transactions)",
		"Last 3 Months (3 transactions)",
		"Last 6 Months (4 transactions)",
		"Last 1 Year (5 transactions)",
	}
	if len(dr.Suggested) != len(wantLabels) {
		t.Fatalf("expected %d presets, got %+v", len(wantLabels), dr.Suggested)
	}
	for i, want := range wantLabels {
		if dr.Suggested[i].Label != want {
			t.Fatalf("preset %d: got %q, want %q", i, dr.Suggested[i].Label, want)
		}
	}

	short := BuildDateRange(txns[:3])
	if len(short.Suggested) != 2 {
		t.Fatalf("a 45 day statement should offer all and last month, got %+v", short.Suggested)
	}
	if empty := BuildDateRange(nil); len(empty.Suggested) != 0 {
		t.Fatalf("empty input should have no presets")
	}
}

func TestListImportJobs_ClampsLimit(t *testing.T) {
	env := newTestEnv(t, fixedClassifier{}, nil)

	jobs, err := env.svc.ListImportJobs(context.Background(), uuid.New(), 0)
	if err != nil {
		t.Fatalf("ListImportJobs failed: %v", err)
	}
	if len(jobs) != defaultJobsListLimit {
		t.Fatalf("expected default limit, got %d", len(jobs))
	}
	jobs, _ = env.svc.ListImportJobs(context.Background(), uuid.New(), 5000)
	if len(jobs) != maxJobsListLimit {
		t.Fatalf("expected clamped limit, got %d", len(jobs))
	}
}

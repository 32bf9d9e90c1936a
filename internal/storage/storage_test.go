package storage_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policypulse/policypulse/internal/model"
	"github.com/policypulse/policypulse/internal/storage"
	"github.com/policypulse/policypulse/internal/testutil"
)

// testDB holds a shared test database connection for all tests in this package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	tc := testutil.MustStartPostgres()

	var err error
	testDB, err = tc.NewTestDB(ctx, testutil.QuietLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create test DB: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

func strPtr(s string) *string { return &s }

func testBill(externalID string) model.BillRecord {
	return model.BillRecord{
		ExternalID: externalID,
		DataSource: model.DataSourceLegiscan,
		GovtType:   model.GovtTypeState,
		GovtSource: "WA",
		BillNumber: "HB " + externalID,
		Title:      "Bill " + externalID,
	}
}

// seedBill inserts a fresh bill and returns its internal id.
func seedBill(t *testing.T, externalID string) int64 {
	t.Helper()
	res, err := testDB.UpsertLegislation(context.Background(), testBill(externalID), "hash-"+externalID)
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.LegislationID
}

func TestUpsertLegislationLifecycle(t *testing.T) {
	ctx := context.Background()
	rec := testBill("lifecycle-1")

	// First sight: inserted with the default status.
	created, err := testDB.UpsertLegislation(ctx, rec, "hash-a")
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.True(t, created.Changed)
	assert.Equal(t, model.BillStatusNew, created.Status)

	before, err := testDB.GetLegislation(ctx, created.LegislationID)
	require.NoError(t, err)

	// Same hash: only the check timestamp moves.
	time.Sleep(10 * time.Millisecond)
	unchanged, err := testDB.UpsertLegislation(ctx, rec, "hash-a")
	require.NoError(t, err)
	assert.False(t, unchanged.Created)
	assert.False(t, unchanged.Changed)
	assert.Equal(t, created.LegislationID, unchanged.LegislationID)

	after, err := testDB.GetLegislation(ctx, created.LegislationID)
	require.NoError(t, err)
	assert.True(t, after.LastAPICheck.After(before.LastAPICheck))
	assert.Equal(t, before.Title, after.Title)

	// New hash, no explicit status: content applied, status becomes updated.
	rec.Title = "Bill lifecycle-1 as amended"
	changed, err := testDB.UpsertLegislation(ctx, rec, "hash-b")
	require.NoError(t, err)
	assert.False(t, changed.Created)
	assert.True(t, changed.Changed)
	assert.Equal(t, model.BillStatusUpdated, changed.Status)

	final, err := testDB.GetLegislation(ctx, created.LegislationID)
	require.NoError(t, err)
	assert.Equal(t, "Bill lifecycle-1 as amended", final.Title)
	require.NotNil(t, final.ChangeHash)
	assert.Equal(t, "hash-b", *final.ChangeHash)
}

func TestUpsertTerminalStatusGuard(t *testing.T) {
	ctx := context.Background()
	rec := testBill("terminal-1")
	rec.Status = model.BillStatusEnacted

	created, err := testDB.UpsertLegislation(ctx, rec, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusEnacted, created.Status)

	// An upstream feed trying to walk the bill back out of enacted is
	// rejected on status, but the content change still lands.
	rec.Status = model.BillStatusIntroduced
	rec.Title = "Bill terminal-1 corrected title"
	res, err := testDB.UpsertLegislation(ctx, rec, "hash-b")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, model.BillStatusEnacted, res.Status)

	got, err := testDB.GetLegislation(ctx, res.LegislationID)
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusEnacted, got.BillStatus)
	assert.Equal(t, "Bill terminal-1 corrected title", got.Title)
}

func TestGetLegislationNotFound(t *testing.T) {
	_, err := testDB.GetLegislation(context.Background(), 99999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSponsorsReplacedWholesale(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "sponsors-1")

	err := testDB.ReplaceSponsors(ctx, id, []model.SponsorInput{
		{Name: "Rep. Adams"}, {Name: "Rep. Brown"},
	})
	require.NoError(t, err)

	err = testDB.ReplaceSponsors(ctx, id, []model.SponsorInput{
		{Name: "Rep. Chen", Party: strPtr("R")},
	})
	require.NoError(t, err)

	got, err := testDB.GetSponsors(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rep. Chen", got[0].Name)
}

func TestAnalysisVersionChain(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "analysis-chain-1")

	v1, err := testDB.CreateAnalysis(ctx, id, model.AnalysisPayload{Summary: "first pass"})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.AnalysisVersion)
	assert.Nil(t, v1.PreviousVersionID)
	assert.Empty(t, v1.ChangesFromPrevious)

	v2, err := testDB.CreateAnalysis(ctx, id, model.AnalysisPayload{
		Summary:   "second pass",
		KeyPoints: []string{"adds county funding"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.AnalysisVersion)
	require.NotNil(t, v2.PreviousVersionID)
	assert.Equal(t, v1.ID, *v2.PreviousVersionID)
	assert.NotEmpty(t, v2.ChangesFromPrevious)

	// An identical payload still appends a version; the change set is empty.
	v3, err := testDB.CreateAnalysis(ctx, id, model.AnalysisPayload{
		Summary:   "second pass",
		KeyPoints: []string{"adds county funding"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, v3.AnalysisVersion)
	assert.Empty(t, v3.ChangesFromPrevious)

	latest, err := testDB.GetLatestAnalysis(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, v3.ID, latest.ID)

	all, err := testDB.ListAnalyses(ctx, id)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].AnalysisVersion, "oldest first")
}

func TestAnalysisMissingBill(t *testing.T) {
	_, err := testDB.CreateAnalysis(context.Background(), 99999999, model.AnalysisPayload{Summary: "s"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAnalysisEmptyPayloadRejected(t *testing.T) {
	id := seedBill(t, "analysis-empty-1")
	_, err := testDB.CreateAnalysis(context.Background(), id, model.AnalysisPayload{})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestConcurrentAnalysisCreation(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "analysis-concurrent-1")

	const writers = 5
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = storage.WithRetry(ctx, 5, 10*time.Millisecond, func() error {
				_, err := testDB.CreateAnalysis(ctx, id,
					model.AnalysisPayload{Summary: fmt.Sprintf("concurrent writer %d", i)})
				return err
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	all, err := testDB.ListAnalyses(ctx, id)
	require.NoError(t, err)
	require.Len(t, all, writers)
	seen := make(map[int]bool)
	for _, a := range all {
		assert.False(t, seen[a.AnalysisVersion], "duplicate version %d", a.AnalysisVersion)
		seen[a.AnalysisVersion] = true
	}
	for v := 1; v <= writers; v++ {
		assert.True(t, seen[v], "missing version %d", v)
	}
}

func TestTextVersionDedupe(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "text-1")

	in := model.TextInput{
		TextType: strPtr("introduced"),
		Content:  model.TextContent("Section 1. Definitions."),
	}
	v1, err := testDB.CreateTextVersion(ctx, id, in)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNum)

	// Identical content: the existing version comes back, no new row.
	dup, err := testDB.CreateTextVersion(ctx, id, in)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, dup.ID)
	assert.Equal(t, 1, dup.VersionNum)

	in.Content = model.TextContent("Section 1. Definitions. Section 2. Scope.")
	v2, err := testDB.CreateTextVersion(ctx, id, in)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNum)

	texts, err := testDB.ListTextVersions(ctx, id)
	require.NoError(t, err)
	assert.Len(t, texts, 2)

	latest, err := testDB.GetLatestText(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.VersionNum)
}

func TestTextVersionEmptyContentRejected(t *testing.T) {
	id := seedBill(t, "text-empty-1")
	_, err := testDB.CreateTextVersion(context.Background(), id, model.TextInput{})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestAmendmentUpsert(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "amendment-1")

	in := model.AmendmentInput{
		AmendmentID: "A-100",
		Title:       strPtr("Strike section 3"),
	}
	first, changed, err := testDB.UpsertAmendment(ctx, id, in)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.AmendmentStatusProposed, first.Status)

	// Same payload hashes identically and is skipped.
	_, changed, err = testDB.UpsertAmendment(ctx, id, in)
	require.NoError(t, err)
	assert.False(t, changed)

	// Adoption flips the status and updates in place.
	in.Adopted = true
	second, changed, err := testDB.UpsertAmendment(ctx, id, in)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Adopted)

	all, err := testDB.ListAmendments(ctx, id)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestManualReviewBlocksAutoScores(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "priority-review-1")

	auto, err := testDB.UpsertAutoScores(ctx, id, model.AutoScores{
		PublicHealthRelevance: 40,
		LocalGovtRelevance:    20,
		OverallPriority:       30,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, auto.PublicHealthRelevance)
	assert.False(t, auto.ManuallyReviewed)

	reviewed, err := testDB.SetManualReview(ctx, id, model.ManualReview{
		ManualPriority: 90,
		ReviewerNotes:  strPtr("tracked by the board"),
	})
	require.NoError(t, err)
	assert.True(t, reviewed.ManuallyReviewed)
	assert.Equal(t, 90, reviewed.ManualPriority)
	require.NotNil(t, reviewed.ReviewDate)

	// Automatic rescoring after review is a no-op.
	after, err := testDB.UpsertAutoScores(ctx, id, model.AutoScores{
		PublicHealthRelevance: 5,
		LocalGovtRelevance:    5,
		OverallPriority:       5,
	})
	require.NoError(t, err)
	assert.True(t, after.ManuallyReviewed)
	assert.Equal(t, 90, after.ManualPriority)
	assert.Equal(t, 40, after.PublicHealthRelevance, "auto fields untouched after review")
}

func TestAutoScoresClamped(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "priority-clamp-1")

	p, err := testDB.UpsertAutoScores(ctx, id, model.AutoScores{
		PublicHealthRelevance: 150,
		LocalGovtRelevance:    -10,
		OverallPriority:       70,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, p.PublicHealthRelevance)
	assert.Equal(t, 0, p.LocalGovtRelevance)
	assert.Equal(t, 70, p.OverallPriority)
}

func TestNotificationLatchNeverReset(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "notify-latch-1")

	_, err := testDB.UpsertAutoScores(ctx, id, model.AutoScores{
		PublicHealthRelevance: 80,
		LocalGovtRelevance:    60,
		OverallPriority:       70,
	})
	require.NoError(t, err)

	p, err := testDB.EvaluateNotification(ctx, id, 60)
	require.NoError(t, err)
	assert.True(t, p.ShouldNotify)
	assert.False(t, p.NotificationSent)

	sent, err := testDB.MarkNotificationSent(ctx, id)
	require.NoError(t, err)
	assert.True(t, sent.NotificationSent)
	require.NotNil(t, sent.NotificationDate)
	firstDate := *sent.NotificationDate

	// Marking again keeps the original timestamp.
	time.Sleep(10 * time.Millisecond)
	again, err := testDB.MarkNotificationSent(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, again.NotificationDate)
	assert.Equal(t, firstDate, *again.NotificationDate)

	// Re-evaluation never reopens the latch: the scores still cross the
	// threshold, but a sent bill stays unflagged.
	reEval, err := testDB.EvaluateNotification(ctx, id, 60)
	require.NoError(t, err)
	assert.True(t, reEval.NotificationSent)
	assert.False(t, reEval.ShouldNotify)

	pending, err := testDB.ListPendingNotifications(ctx, 100)
	require.NoError(t, err)
	for _, q := range pending {
		assert.NotEqual(t, id, q.LegislationID, "sent bill must not reappear as pending")
	}
}

func TestEitherScoreFlagsNotification(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "notify-either-1")

	// The overall priority sits below the threshold; the health score alone
	// crossing it is enough to flag the bill.
	_, err := testDB.UpsertAutoScores(ctx, id, model.AutoScores{
		PublicHealthRelevance: 80,
		LocalGovtRelevance:    10,
		OverallPriority:       45,
	})
	require.NoError(t, err)

	p, err := testDB.EvaluateNotification(ctx, id, 60)
	require.NoError(t, err)
	assert.True(t, p.ShouldNotify)

	// With neither score crossing, the flag drops.
	_, err = testDB.UpsertAutoScores(ctx, id, model.AutoScores{
		PublicHealthRelevance: 40,
		LocalGovtRelevance:    50,
		OverallPriority:       45,
	})
	require.NoError(t, err)

	p, err = testDB.EvaluateNotification(ctx, id, 60)
	require.NoError(t, err)
	assert.False(t, p.ShouldNotify)
}

func TestAlertPreferenceThresholdsDriveNotification(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "notify-prefs-1")

	u, err := testDB.GetOrCreateUser(ctx, "thresholds@example.com")
	require.NoError(t, err)
	prefs := model.AlertPreferences{
		UserID:             u.ID,
		Email:              "thresholds@example.com",
		Active:             true,
		HealthThreshold:    50,
		LocalGovtThreshold: 90,
	}
	_, err = testDB.SaveAlertPreferences(ctx, prefs)
	require.NoError(t, err)

	_, err = testDB.UpsertAutoScores(ctx, id, model.AutoScores{
		PublicHealthRelevance: 55,
		LocalGovtRelevance:    70,
		OverallPriority:       60,
	})
	require.NoError(t, err)

	// 55 clears the subscriber's health threshold of 50 even though the
	// fallback of 90 alone would flag nothing.
	p, err := testDB.EvaluateNotification(ctx, id, 90)
	require.NoError(t, err)
	assert.True(t, p.ShouldNotify)

	// With the subscription deactivated, only the fallback applies.
	prefs.Active = false
	_, err = testDB.SaveAlertPreferences(ctx, prefs)
	require.NoError(t, err)

	p, err = testDB.EvaluateNotification(ctx, id, 90)
	require.NoError(t, err)
	assert.False(t, p.ShouldNotify)
}

func TestSyncRunLifecycle(t *testing.T) {
	ctx := context.Background()

	run, err := testDB.BeginSyncRun(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusInProgress, run.Status)
	assert.Nil(t, run.LastSuccessfulSync)

	require.NoError(t, testDB.RecordSyncError(ctx, run.ID, "bill_processing", "upstream timeout", ""))

	// Finalizing with a non-terminal status is rejected.
	_, err = testDB.CompleteSyncRun(ctx, run.ID, model.SyncStatusInProgress, 0, 0, nil)
	assert.ErrorIs(t, err, storage.ErrValidation)

	done, err := testDB.CompleteSyncRun(ctx, run.ID, model.SyncStatusPartial, 3, 1,
		map[string]any{"failed_bills": 1})
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusPartial, done.Status)
	assert.Equal(t, 3, done.NewBills)
	assert.Nil(t, done.LastSuccessfulSync, "partial runs do not advance the success marker")

	// A terminal run cannot be finalized twice.
	_, err = testDB.CompleteSyncRun(ctx, run.ID, model.SyncStatusCompleted, 0, 0, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	syncErrors, err := testDB.ListSyncErrors(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, syncErrors, 1)
	require.NotNil(t, syncErrors[0].ErrorMessage)
	assert.Equal(t, "upstream timeout", *syncErrors[0].ErrorMessage)

	// Completed runs do stamp the success marker.
	run2, err := testDB.BeginSyncRun(ctx, "nightly")
	require.NoError(t, err)
	done2, err := testDB.CompleteSyncRun(ctx, run2.ID, model.SyncStatusCompleted, 1, 0, nil)
	require.NoError(t, err)
	assert.NotNil(t, done2.LastSuccessfulSync)

	history, err := testDB.GetSyncHistory(ctx, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(history), 2)
}

func TestUserPreferencesSingleRow(t *testing.T) {
	ctx := context.Background()

	u, err := testDB.GetOrCreateUser(ctx, "prefs@example.com")
	require.NoError(t, err)

	first, err := testDB.SaveUserPreferences(ctx, model.UserPreferences{
		UserID:   u.ID,
		Keywords: []string{"zoning"},
	})
	require.NoError(t, err)
	assert.Equal(t, "all", first.DefaultView, "defaults filled in")
	assert.Equal(t, 25, first.ItemsPerPage)

	second, err := testDB.SaveUserPreferences(ctx, model.UserPreferences{
		UserID:   u.ID,
		Keywords: []string{"zoning", "transit"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one preferences row per user")

	got, err := testDB.GetUserPreferences(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"zoning", "transit"}, got.Keywords)
}

func TestAlertPreferencesAndHistory(t *testing.T) {
	ctx := context.Background()

	u, err := testDB.GetOrCreateUser(ctx, "alerts@example.com")
	require.NoError(t, err)
	id := seedBill(t, "alert-bill-1")

	prefs, err := testDB.SaveAlertPreferences(ctx, model.AlertPreferences{
		UserID:             u.ID,
		Email:              "alerts@example.com",
		Active:             true,
		HealthThreshold:    70,
		LocalGovtThreshold: 70,
		NotifyOnNew:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, 70, prefs.HealthThreshold)

	got, err := testDB.GetAlertPreferences(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, prefs.ID, got.ID)

	rec, err := testDB.RecordAlert(ctx, model.AlertRecord{
		UserID:        u.ID,
		LegislationID: id,
		AlertType:     model.AlertTypeHighPriority,
	})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)

	_, err = testDB.RecordAlert(ctx, model.AlertRecord{
		UserID:        u.ID,
		LegislationID: id,
		AlertType:     "bogus",
	})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestSearchRankingAndCount(t *testing.T) {
	ctx := context.Background()

	rec1 := testBill("search-rank-1")
	rec1.Title = "Groundwater contamination cleanup act"
	rec1.Description = strPtr("Remediation of groundwater contamination near industrial sites.")
	res1, err := testDB.UpsertLegislation(ctx, rec1, "hash-sr1")
	require.NoError(t, err)

	rec2 := testBill("search-rank-2")
	rec2.Title = "Vehicle registration fees"
	rec2.Description = strPtr("Adjusts vehicle registration fee schedules. Mentions groundwater once.")
	_, err = testDB.UpsertLegislation(ctx, rec2, "hash-sr2")
	require.NoError(t, err)

	results, total, err := testDB.SearchLegislation(ctx, "groundwater contamination", 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.GreaterOrEqual(t, total, 1)
	assert.Equal(t, res1.LegislationID, results[0].ID, "title hit ranks first")
	assert.Greater(t, results[0].Rank, float32(0))
}

func TestDeleteLegislationCounts(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "delete-counts-1")

	_, err := testDB.CreateAnalysis(ctx, id, model.AnalysisPayload{Summary: "short lived"})
	require.NoError(t, err)
	_, err = testDB.CreateTextVersion(ctx, id, model.TextInput{Content: model.TextContent("text")})
	require.NoError(t, err)
	require.NoError(t, testDB.ReplaceSponsors(ctx, id, []model.SponsorInput{{Name: "Rep. Doe"}}))
	_, _, err = testDB.UpsertAmendment(ctx, id, model.AmendmentInput{AmendmentID: "A-1"})
	require.NoError(t, err)
	_, err = testDB.UpsertAutoScores(ctx, id, model.AutoScores{OverallPriority: 10})
	require.NoError(t, err)
	_, err = testDB.CreateImpactRating(ctx, model.ImpactRating{
		LegislationID:  id,
		ImpactCategory: model.ImpactCategoryPublicHealth,
		ImpactLevel:    model.ImpactLevelModerate,
	})
	require.NoError(t, err)

	counts, err := testDB.DeleteLegislation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Legislation)
	assert.Equal(t, int64(1), counts.Analyses)
	assert.Equal(t, int64(1), counts.Texts)
	assert.Equal(t, int64(1), counts.Sponsors)
	assert.Equal(t, int64(1), counts.Amendments)
	assert.Equal(t, int64(1), counts.Priorities)
	assert.Equal(t, int64(1), counts.ImpactRatings)

	_, err = testDB.GetLegislation(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = testDB.DeleteLegislation(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestImpactRatingsAndRequirements(t *testing.T) {
	ctx := context.Background()
	id := seedBill(t, "ratings-1")

	rating, err := testDB.CreateImpactRating(ctx, model.ImpactRating{
		LegislationID:  id,
		ImpactCategory: model.ImpactCategoryLocalGov,
		ImpactLevel:    model.ImpactLevelHigh,
		IsAIGenerated:  true,
	})
	require.NoError(t, err)
	assert.True(t, rating.IsAIGenerated)

	require.NoError(t, testDB.ReviewImpactRating(ctx, rating.ID, "analyst@example.com"))

	ratings, err := testDB.ListImpactRatings(ctx, id)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.False(t, ratings[0].IsAIGenerated, "review clears the machine-generated flag")
	require.NotNil(t, ratings[0].ReviewedBy)
	assert.Equal(t, "analyst@example.com", *ratings[0].ReviewedBy)

	req, err := testDB.CreateImplementationRequirement(ctx, model.ImplementationRequirement{
		LegislationID:   id,
		RequirementType: "reporting",
		Description:     "Annual compliance report to the county",
	})
	require.NoError(t, err)
	assert.NotZero(t, req.ID)

	reqs, err := testDB.ListImplementationRequirements(ctx, id)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestAPIKeyRotation(t *testing.T) {
	ctx := context.Background()

	k1, err := testDB.CreateAPIKey(ctx, "rotation-client", "hash-one", "")
	require.NoError(t, err)
	assert.Equal(t, "collaborator", k1.Role)

	k2, err := testDB.CreateAPIKey(ctx, "rotation-client", "hash-two", "collaborator")
	require.NoError(t, err)

	// Both keys stay active during rotation.
	active, err := testDB.ActiveAPIKeys(ctx, "rotation-client")
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, testDB.RevokeAPIKey(ctx, k1.ID))

	active, err = testDB.ActiveAPIKeys(ctx, "rotation-client")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, k2.ID, active[0].ID)

	require.NoError(t, testDB.TouchAPIKey(ctx, k2.ID))
	active, err = testDB.ActiveAPIKeys(ctx, "rotation-client")
	require.NoError(t, err)
	require.NotNil(t, active[0].LastUsedAt)
}

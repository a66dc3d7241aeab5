package services_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testhelpers "github.com/vvka-141/koboload/internal/testing"
	"github.com/vvka-141/koboload/pkg/koboload"
)

const fullHeader = "start;end;Date of reporting;Store location;Gender;Age;" +
	"How satisfied are you with the product pricing;How satisfied are you with the customer services;" +
	"What is your overall satisfaction?;what is your recommendation;_id;_uuid;_submission_time;" +
	"_validation_status;_notes;_status;_submitted_by;__version__;_tags;_index"

func fullRow(id, gender string) string {
	return strings.Join([]string{
		"2024-03-01T09:00:00.000+01:00", "2024-03-01T09:04:00.000+01:00", "2024-03-01", "Lagos",
		gender, "25-34", "Satisfied", "Very satisfied", "Satisfied", "Keep it up",
		id, "uuid-" + id, "2024-03-01T08:05:00", "", "", "submitted_via_web", "", "vABC", "", id,
	}, ";")
}

func export(rows ...string) string {
	return fullHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func setup(t *testing.T, dbName string, status int, body string) (*testhelpers.ExportServer, koboload.RunConfig, string) {
	t.Helper()

	connString := testhelpers.RequireDatabase(t)
	testhelpers.CreateTestDB(t, connString, dbName)
	server := testhelpers.ServeExport(t, status, body)
	cfg := testhelpers.NewRunConfig(t, connString, dbName, server.ExportURL())
	return server, cfg, connString
}

func TestPipeline_ExampleScenario(t *testing.T) {
	body := "start;end;Gender;_id\n2024-01-01T10:00:00;2024-01-01T10:05:00;Female;101\n"
	_, cfg, connString := setup(t, "koboload_it_example", http.StatusOK, body)

	summary, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, summary.Load)
	assert.Equal(t, 1, summary.Load.Inserted)
	assert.True(t, summary.Load.Committed)

	pool := testhelpers.GetTestPool(t, connString, "koboload_it_example")
	assert.Equal(t, 1, testhelpers.CountRows(t, pool, koboload.TargetNamespace, koboload.TargetTable))

	var (
		gender   string
		id       int
		location *string
	)
	err = pool.QueryRow(context.Background(),
		`SELECT "Gender", "_id", "Store_location" FROM "chidinma_1"."customers_feedback"`).
		Scan(&gender, &id, &location)
	require.NoError(t, err)
	assert.Equal(t, "Female", gender)
	assert.Equal(t, 101, id)
	assert.Nil(t, location)
}

func TestPipeline_ReplacesPriorContents(t *testing.T) {
	server, cfg, connString := setup(t, "koboload_it_replace", http.StatusOK,
		export(fullRow("1", "Female"), fullRow("2", "Male"), fullRow("3", "Female")))
	pipeline := testhelpers.NewTestPipeline(t)
	pool := testhelpers.GetTestPool(t, connString, "koboload_it_replace")

	_, err := pipeline.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, testhelpers.CountRows(t, pool, koboload.TargetNamespace, koboload.TargetTable))

	server.SetResponse(http.StatusOK, export(fullRow("7", "Male"), fullRow("8", "Male")))
	summary, err := pipeline.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, len(summary.Parse.Records), testhelpers.CountRows(t, pool, koboload.TargetNamespace, koboload.TargetTable))

	var ids []int
	rows, err := pool.Query(context.Background(), `SELECT "_id" FROM "chidinma_1"."customers_feedback" ORDER BY "_id"`)
	require.NoError(t, err)
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int{7, 8}, ids)
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	_, cfg, connString := setup(t, "koboload_it_idempotent", http.StatusOK,
		export(fullRow("1", "Female"), fullRow("2", "Male")))
	pipeline := testhelpers.NewTestPipeline(t)
	pool := testhelpers.GetTestPool(t, connString, "koboload_it_idempotent")

	snapshot := func() string {
		var s string
		err := pool.QueryRow(context.Background(), `
			SELECT string_agg(row_to_json(t)::jsonb - 'id' #>> '{}', E'\n' ORDER BY t."_id")
			FROM "chidinma_1"."customers_feedback" t`).Scan(&s)
		require.NoError(t, err)
		return s
	}

	s1, err := pipeline.Run(context.Background(), cfg)
	require.NoError(t, err)
	first := snapshot()

	s2, err := pipeline.Run(context.Background(), cfg)
	require.NoError(t, err)
	second := snapshot()

	assert.Equal(t, s1.Checksum, s2.Checksum)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, testhelpers.CountRows(t, pool, koboload.TargetNamespace, koboload.TargetTable))
}

func TestPipeline_FetchFailureWritesNothing(t *testing.T) {
	for _, tc := range []struct {
		status int
		dbName string
	}{
		{http.StatusNotFound, "koboload_it_fetch_404"},
		{http.StatusInternalServerError, "koboload_it_fetch_500"},
	} {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server, cfg, connString := setup(t, tc.dbName, tc.status, "oops")

			summary, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, koboload.ErrFetchFailed)
			assert.Equal(t, tc.status, summary.StatusCode)
			assert.Equal(t, 1, server.Hits(), "exactly one request, no retry")

			pool := testhelpers.GetTestPool(t, connString, tc.dbName)
			assert.False(t, testhelpers.TableExists(t, pool, koboload.TargetNamespace, koboload.TargetTable))
		})
	}
}

func TestPipeline_WrongCredentials(t *testing.T) {
	_, cfg, connString := setup(t, "koboload_it_unauthorized", http.StatusOK, export(fullRow("1", "Female")))
	cfg.SourcePassword = "wrong"

	summary, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, koboload.ErrFetchFailed)
	assert.Equal(t, http.StatusUnauthorized, summary.StatusCode)

	pool := testhelpers.GetTestPool(t, connString, "koboload_it_unauthorized")
	assert.False(t, testhelpers.TableExists(t, pool, koboload.TargetNamespace, koboload.TargetTable))
}

func TestPipeline_SkipsMalformedLines(t *testing.T) {
	malformed := "2024-03-01T09:00:00;only;three"
	_, cfg, connString := setup(t, "koboload_it_malformed", http.StatusOK,
		export(fullRow("1", "Female"), malformed, fullRow("2", "Male")))

	summary, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Parse.Skipped)
	assert.Equal(t, []int{3}, summary.Parse.SkippedLines)

	pool := testhelpers.GetTestPool(t, connString, "koboload_it_malformed")
	assert.Equal(t, 2, testhelpers.CountRows(t, pool, koboload.TargetNamespace, koboload.TargetTable))
}

func TestPipeline_AtomicFailureKeepsPreviousTable(t *testing.T) {
	server, cfg, connString := setup(t, "koboload_it_atomic", http.StatusOK,
		export(fullRow("1", "Female"), fullRow("2", "Male")))
	pipeline := testhelpers.NewTestPipeline(t)
	pool := testhelpers.GetTestPool(t, connString, "koboload_it_atomic")

	_, err := pipeline.Run(context.Background(), cfg)
	require.NoError(t, err)

	server.SetResponse(http.StatusOK, export(fullRow("10", "Female"), fullRow("not-a-number", "Male"), fullRow("12", "Male")))
	summary, err := pipeline.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, koboload.ErrLoadFailed)
	assert.Equal(t, koboload.ExitLoadFailed, koboload.ExitCodeForError(err))

	require.NotNil(t, summary.Load)
	assert.False(t, summary.Load.Committed)
	assert.Equal(t, 3, summary.Load.Attempted)
	require.Len(t, summary.Load.Failures, 1)
	assert.Equal(t, 1, summary.Load.Failures[0].Index)
	assert.Equal(t, "data exception", summary.Load.Failures[0].Reason)

	assert.Equal(t, 2, testhelpers.CountRows(t, pool, koboload.TargetNamespace, koboload.TargetTable),
		"rolled-back load must leave the previous table in place")
}

func TestPipeline_BestEffortKeepsGoodRows(t *testing.T) {
	_, cfg, connString := setup(t, "koboload_it_best_effort", http.StatusOK,
		export(fullRow("10", "Female"), fullRow("not-a-number", "Male"), fullRow("12", "Male")))
	cfg.Mode = koboload.LoadModeBestEffort

	summary, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, koboload.ErrPartialLoad)
	assert.Equal(t, koboload.ExitPartialLoad, koboload.ExitCodeForError(err))
	assert.True(t, summary.Load.Committed)
	assert.Equal(t, 2, summary.Load.Inserted)

	pool := testhelpers.GetTestPool(t, connString, "koboload_it_best_effort")
	assert.Equal(t, 2, testhelpers.CountRows(t, pool, koboload.TargetNamespace, koboload.TargetTable))
}

func TestPipeline_EmptyExportBody(t *testing.T) {
	_, cfg, connString := setup(t, "koboload_it_header_only", http.StatusOK, fullHeader+"\n")

	summary, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Load.Attempted)

	pool := testhelpers.GetTestPool(t, connString, "koboload_it_header_only")
	assert.True(t, testhelpers.TableExists(t, pool, koboload.TargetNamespace, koboload.TargetTable))
	assert.Equal(t, 0, testhelpers.CountRows(t, pool, koboload.TargetNamespace, koboload.TargetTable))
}

func TestPipeline_DryRunLeavesDatabaseUntouched(t *testing.T) {
	_, cfg, connString := setup(t, "koboload_it_dry_run", http.StatusOK, export(fullRow("1", "Female")))
	cfg.DryRun = true

	summary, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, summary.Load)

	pool := testhelpers.GetTestPool(t, connString, "koboload_it_dry_run")
	assert.False(t, testhelpers.TableExists(t, pool, koboload.TargetNamespace, koboload.TargetTable))
}

func TestPipeline_ConnectionFailure(t *testing.T) {
	_, cfg, _ := setup(t, "koboload_it_bad_db", http.StatusOK, export(fullRow("1", "Female")))
	cfg.Connection.Database = "koboload_it_does_not_exist"

	_, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, koboload.ErrConnectionFailed)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestPipeline_ReleasesConnection(t *testing.T) {
	server, cfg, connString := setup(t, "koboload_it_release", http.StatusOK, export(fullRow("1", "Female")))
	cfg.Connection.AppName = "koboload/release-check"
	pool := testhelpers.GetTestPool(t, connString, "koboload_it_release")

	sessions := func() int {
		var n int
		err := pool.QueryRow(context.Background(),
			`SELECT count(*) FROM pg_stat_activity WHERE application_name = $1`, cfg.Connection.AppName).Scan(&n)
		if err != nil {
			return -1
		}
		return n
	}

	_, err := testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return sessions() == 0 }, 5*time.Second, 50*time.Millisecond)

	server.SetResponse(http.StatusOK, export(fullRow("x", "Female")))
	_, err = testhelpers.NewTestPipeline(t).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Eventually(t, func() bool { return sessions() == 0 }, 5*time.Second, 50*time.Millisecond,
		"the connection must be released after a failed load too")
}

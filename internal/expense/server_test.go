package expense

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := NewServer("127.0.0.1:0", store, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, ts *httptest.Server, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := noRedirectClient().Post(
		ts.URL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func addForm(date string) url.Values {
	return url.Values{
		"entry_date": {date},
		"item_name":  {"milk"},
		"item_type":  {"liquid"},
		"quantity":   {"2"},
		"unit_price": {"1.25"},
	}
}

func TestAddThenFetchJSON(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	resp := postForm(t, ts, "/add", addForm("2025-10-03"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/?date=2025-10-03", resp.Header.Get("Location"))

	apiResp, err := http.Get(ts.URL + "/api/expenses?date=2025-10-03")
	require.NoError(t, err)
	defer apiResp.Body.Close()
	require.Equal(t, http.StatusOK, apiResp.StatusCode)

	var snap struct {
		Date  string `json:"date"`
		Items []struct {
			ItemName  string  `json:"item_name"`
			Unit      string  `json:"unit"`
			LineTotal float64 `json:"line_total"`
		} `json:"items"`
		Total float64 `json:"total"`
	}
	require.NoError(t, json.NewDecoder(apiResp.Body).Decode(&snap))
	require.Equal(t, "2025-10-03", snap.Date)
	require.Len(t, snap.Items, 1)
	require.Equal(t, "milk", snap.Items[0].ItemName)
	require.Equal(t, "L", snap.Items[0].Unit)
	require.Equal(t, 2.5, snap.Items[0].LineTotal)
	require.Equal(t, 2.5, snap.Total)
}

func TestAddDefaultsAndValidation(t *testing.T) {
	t.Parallel()

	ts, store := newTestServer(t)

	t.Run("type defaults to utility and quantity to one", func(t *testing.T) {
		form := url.Values{
			"entry_date": {"2025-10-04"},
			"item_name":  {"internet"},
			"unit_price": {"30"},
		}
		resp := postForm(t, ts, "/add", form)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		entries, total, err := store.ForDate("2025-10-04")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, TypeUtility, entries[0].ItemType)
		require.Equal(t, 1.0, entries[0].Quantity)
		require.Equal(t, 30.0, total)
	})

	t.Run("negative price rejected", func(t *testing.T) {
		form := addForm("2025-10-04")
		form.Set("unit_price", "-1")
		resp := postForm(t, ts, "/add", form)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("liquid without quantity rejected", func(t *testing.T) {
		form := addForm("2025-10-04")
		form.Del("quantity")
		resp := postForm(t, ts, "/add", form)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing name rejected", func(t *testing.T) {
		form := addForm("2025-10-04")
		form.Set("item_name", "   ")
		resp := postForm(t, ts, "/add", form)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		form := addForm("2025-10-04")
		form.Set("item_type", "gas")
		resp := postForm(t, ts, "/add", form)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad date rejected", func(t *testing.T) {
		form := addForm("someday")
		resp := postForm(t, ts, "/add", form)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteExpense(t *testing.T) {
	t.Parallel()

	ts, store := newTestServer(t)

	resp := postForm(t, ts, "/add", addForm("2025-10-05"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	entries, _, err := store.ForDate("2025-10-05")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	resp = postForm(t, ts, "/delete/"+formatID(entries[0].ID), url.Values{"entry_date": {"2025-10-05"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	entries, _, err = store.ForDate("2025-10-05")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAPITotal(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	postForm(t, ts, "/add", addForm("2025-10-06"))

	resp, err := http.Get(ts.URL + "/api/total?date=2025-10-06")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Date  string  `json:"date"`
		Total float64 `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "2025-10-06", body.Date)
	require.Equal(t, 2.5, body.Total)
}

func TestDownloadMonthCSV(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	postForm(t, ts, "/add", addForm("2025-10-03"))

	resp, err := http.Get(ts.URL + "/download/month?date=2025-10-20")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	require.Contains(t, resp.Header.Get("Content-Disposition"), "expenses_October_2025.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "date,item_name,item_type,quantity,unit_price,line_total", lines[0])
	require.Equal(t, "2025-10-03,milk,liquid,2,1.25,2.5", lines[1])
}

func TestIndexRendersTotals(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	postForm(t, ts, "/add", addForm("2025-10-03"))
	form := url.Values{
		"entry_date": {"2025-10-03"},
		"item_name":  {"rent"},
		"item_type":  {"fixed"},
		"unit_price": {"800"},
	}
	postForm(t, ts, "/add", form)

	resp, err := http.Get(ts.URL + "/?date=2025-10-03")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	require.Contains(t, page, "milk")
	require.Contains(t, page, "rent")
	require.Contains(t, page, "802.50")
	require.Contains(t, page, "October 2025")
}

func TestWebsocketPushesChanges(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?date=2025-10-07"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var snap daySnapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&snap))
	require.Equal(t, "2025-10-07", snap.Date)
	require.Empty(t, snap.Items)

	postForm(t, ts, "/add", addForm("2025-10-07"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&snap))
	require.Equal(t, "2025-10-07", snap.Date)
	require.Len(t, snap.Items, 1)
	require.Equal(t, 2.5, snap.Total)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

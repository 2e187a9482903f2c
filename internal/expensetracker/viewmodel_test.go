package expensetracker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundryadmin/internal/core"
	"laundryadmin/internal/gateway"
	"laundryadmin/internal/log"
)

// fakeGateway is a scriptable Gateway: responses and transport failures are
// registered per method+path, transmitted bodies are recorded for
// inspection, and calls can be gated to simulate out-of-order completion.
type fakeGateway struct {
	mu        sync.Mutex
	responses map[string]gateway.Result
	failures  map[string]error
	bodies    map[string][]byte
	started   map[string]chan struct{}
	release   map[string]chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		responses: make(map[string]gateway.Result),
		failures:  make(map[string]error),
		bodies:    make(map[string][]byte),
		started:   make(map[string]chan struct{}),
		release:   make(map[string]chan struct{}),
	}
}

func (f *fakeGateway) respond(method, path string, status int, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+path] = gateway.Result{StatusCode: status, Data: json.RawMessage(payload)}
}

func (f *fakeGateway) fail(method, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = err
}

// block makes the next call to method+path wait: started is closed when the
// call arrives, and the call returns only after release is closed.
func (f *fakeGateway) block(method, path string) (started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[method+" "+path] = started
	f.release[method+" "+path] = release
	return started, release
}

func (f *fakeGateway) sentBody(t *testing.T, method, path string) map[string]any {
	t.Helper()
	f.mu.Lock()
	data, ok := f.bodies[method+" "+path]
	f.mu.Unlock()
	require.True(t, ok, "no body recorded for %s %s", method, path)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

func (f *fakeGateway) do(method, path string, body any) (gateway.Result, error) {
	key := method + " " + path
	f.mu.Lock()
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			f.mu.Unlock()
			return gateway.Result{}, err
		}
		f.bodies[key] = data
	}
	started := f.started[key]
	release := f.release[key]
	delete(f.started, key)
	delete(f.release, key)
	err := f.failures[key]
	res, ok := f.responses[key]
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return gateway.Result{}, err
	}
	if ok {
		return res, nil
	}
	return gateway.Result{StatusCode: http.StatusNotFound, Data: json.RawMessage(`{"detail":"Not found."}`)}, nil
}

func (f *fakeGateway) Get(_ context.Context, path string) (gateway.Result, error) {
	return f.do(http.MethodGet, path, nil)
}

func (f *fakeGateway) Post(_ context.Context, path string, body any) (gateway.Result, error) {
	return f.do(http.MethodPost, path, body)
}

func (f *fakeGateway) Put(_ context.Context, path string, body any) (gateway.Result, error) {
	return f.do(http.MethodPut, path, body)
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newTestViewModel(fake *fakeGateway) *ViewModel {
	return New(fake, testLogger())
}

func strPtr(s string) *string { return &s }

func idPtr(id int64) *int64 { return &id }

func TestToggleShowLineItems(t *testing.T) {
	vm := newTestViewModel(newFakeGateway())
	job := &core.Job{ID: 900}

	vm.ToggleShowLineItems(job)
	assert.True(t, job.ShowLineItems)
	vm.ToggleShowLineItems(job)
	assert.False(t, job.ShowLineItems)
}

func TestToggleShowNewJobForm(t *testing.T) {
	vm := newTestViewModel(newFakeGateway())

	vm.ToggleShowNewJobForm()
	assert.True(t, vm.ShowNewJobForm)
	vm.ToggleShowNewJobForm()
	assert.False(t, vm.ShowNewJobForm)
}

func TestToggleShowNewLineItemForm(t *testing.T) {
	vm := newTestViewModel(newFakeGateway())
	job := &core.Job{ID: 900}

	vm.ToggleShowNewLineItemForm(job)
	assert.True(t, job.ShowNewLineItemForm)
	vm.ToggleShowNewLineItemForm(job)
	assert.False(t, job.ShowNewLineItemForm)
}

func TestLoadBindsReferenceData(t *testing.T) {
	fake := newFakeGateway()
	fake.respond(http.MethodGet, laundryRoomsPath, 200, `[{"id":1,"display_name":"1 Arden ST","laundry_group":1}]`)
	fake.respond(http.MethodGet, machinesPath, 200, `[{"id":10,"machine_text":"Washer #10"}]`)
	fake.respond(http.MethodGet, techniciansPath, 200, `[{"id":7,"employment_type":"EMPLOYEE"}]`)
	fake.respond(http.MethodGet, jobStatusesPath, 200, `["CREATED","IN_PROGRESS","CLOSED"]`)
	fake.respond(http.MethodGet, jobTypesPath, 200, `["REPAIR"]`)
	fake.respond(http.MethodGet, lineItemTypesPath, 200, `["LABOR","PART"]`)
	// line-item-statuses deliberately not registered: the fetch 404s.

	vm := newTestViewModel(fake)
	vm.Load(context.Background())

	assert.Len(t, vm.LaundryRooms, 1)
	assert.Len(t, vm.Machines, 1)
	assert.Len(t, vm.Technicians, 1)
	assert.Equal(t, []string{"CREATED", "IN_PROGRESS", "CLOSED"}, vm.Statuses)
	assert.Equal(t, []string{"REPAIR"}, vm.Types)
	assert.Equal(t, []string{"LABOR", "PART"}, vm.LineItemTypes)

	// A failed fetch leaves its list unset; everything else still loads.
	assert.Nil(t, vm.LineItemStatuses)
}

func TestSearchReplacesResult(t *testing.T) {
	fake := newFakeGateway()
	fake.respond(http.MethodPost, searchPath, 200,
		`[{"id":900,"laundry_room":1,"machine":10,"status":"IN_PROGRESS","start_date":"2023-01-02","final_date":null,"line_items":[]}]`)

	vm := newTestViewModel(fake)
	vm.Result = []*core.Job{{ID: 1}}
	vm.SearchData = SearchData{
		LaundryRoom: &core.LaundryRoom{ID: 1, DisplayName: "1 Arden ST"},
		Status:      "IN_PROGRESS",
	}
	vm.Search(context.Background())

	require.Len(t, vm.Result, 1)
	assert.Equal(t, int64(900), vm.Result[0].ID)

	// Criteria go over the wire wholesale, room as the full record.
	body := fake.sentBody(t, http.MethodPost, searchPath)
	room, ok := body["laundry_room"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), room["id"])
	assert.Equal(t, "IN_PROGRESS", body["status"])
}

func TestSearchFailureIsSilent(t *testing.T) {
	vm := newTestViewModel(newFakeGateway()) // search 404s
	vm.Result = []*core.Job{{ID: 1}}
	vm.Search(context.Background())

	// The original screen has no failure handler for job search.
	assert.Len(t, vm.Result, 1)
	assert.Nil(t, vm.Errors)
}

func TestResetSavedMessage(t *testing.T) {
	vm := newTestViewModel(newFakeGateway())
	job := &core.Job{ID: 900}
	item := &core.LineItem{ID: 4900}
	vm.Errors = json.RawMessage(`{}`)
	vm.SuccessfulSaveJob = job
	vm.ErrorSaveJob = job
	vm.SuccessfulSaveLineItem = item
	vm.ErrorSaveLineItem = item
	vm.NewJobSuccess = true
	vm.NewJobErrors = json.RawMessage(`{}`)
	vm.NewLineItemSuccess = true
	vm.NewLineItemErrors = json.RawMessage(`{}`)

	vm.ResetSavedMessage()

	assert.Nil(t, vm.Errors)
	assert.Nil(t, vm.SuccessfulSaveJob)
	assert.Nil(t, vm.ErrorSaveJob)
	assert.Nil(t, vm.SuccessfulSaveLineItem)
	assert.Nil(t, vm.ErrorSaveLineItem)
	assert.False(t, vm.NewJobSuccess)
	assert.Nil(t, vm.NewJobErrors)
	assert.False(t, vm.NewLineItemSuccess)
	assert.Nil(t, vm.NewLineItemErrors)
}

func TestSaveJobSuccess(t *testing.T) {
	fake := newFakeGateway()
	fake.respond(http.MethodPut, jobsPath+"/900", 200, `{"id":900}`)

	vm := newTestViewModel(fake)
	job := &core.Job{ID: 900, StartDate: strPtr(""), FinalDate: strPtr("2023-02-01")}
	vm.SaveJob(context.Background(), job)

	assert.Same(t, job, vm.SuccessfulSaveJob)
	assert.Nil(t, vm.ErrorSaveJob)
	assert.Nil(t, vm.Errors)

	// The falsy start date went out as an explicit null, not "".
	body := fake.sentBody(t, http.MethodPut, jobsPath+"/900")
	require.Contains(t, body, "start_date")
	assert.Nil(t, body["start_date"])
	assert.Equal(t, "2023-02-01", body["final_date"])
}

func TestSaveJobFailureSetsBothSignals(t *testing.T) {
	fake := newFakeGateway()
	payload := `{"final_date":["Final date must be filled in for status closed."]}`
	fake.respond(http.MethodPut, jobsPath+"/900", 400, payload)

	vm := newTestViewModel(fake)
	job := &core.Job{ID: 900, Status: "CLOSED"}
	vm.SaveJob(context.Background(), job)

	assert.Same(t, job, vm.ErrorSaveJob)
	assert.JSONEq(t, payload, string(vm.Errors))
	assert.Nil(t, vm.SuccessfulSaveJob)
}

func TestSaveNewJobSuccessAppendsServerRecord(t *testing.T) {
	fake := newFakeGateway()
	fake.respond(http.MethodPost, jobsPath, 200, `{"id":1001,"laundry_room":1,"status":"CREATED","line_items":[]}`)

	vm := newTestViewModel(fake)
	vm.Result = []*core.Job{{ID: 900}}
	job := &core.Job{LaundryRoom: idPtr(1), Machine: idPtr(0), Status: "CREATED", StartDate: strPtr("")}
	vm.SaveNewJob(context.Background(), job)

	assert.True(t, vm.NewJobSuccess)
	require.Len(t, vm.Result, 2)
	assert.Equal(t, int64(1001), vm.Result[1].ID)
	// The appended record is the server's, not the submitted form object.
	assert.NotSame(t, job, vm.Result[1])

	body := fake.sentBody(t, http.MethodPost, jobsPath)
	assert.Nil(t, body["machine"])
	assert.Nil(t, body["start_date"])
	assert.Equal(t, float64(1), body["laundry_room"])
}

func TestSaveNewJobFailureUsesDistinctErrors(t *testing.T) {
	fake := newFakeGateway()
	payload := `{"non_field_errors":["At least one machine or laundry room must be filled in."]}`
	fake.respond(http.MethodPost, jobsPath, 400, payload)

	vm := newTestViewModel(fake)
	vm.SaveNewJob(context.Background(), &core.Job{Status: "CREATED"})

	assert.JSONEq(t, payload, string(vm.NewJobErrors))
	assert.Nil(t, vm.Errors)
	assert.False(t, vm.NewJobSuccess)
	assert.Empty(t, vm.Result)
}

func TestSaveLineItemSuccessTakesAuthoritativeCost(t *testing.T) {
	fake := newFakeGateway()
	fake.respond(http.MethodPut, lineItemsPath+"/4900", 200,
		`{"id":4900,"job":900,"line_item_type":"LABOR","time":3,"cost":"75.00"}`)

	vm := newTestViewModel(fake)
	clientCost := decimal.NewFromInt(10)
	item := &core.LineItem{ID: 4900, Job: 900, StartDate: strPtr(""), Cost: &clientCost}
	vm.SaveLineItem(context.Background(), item)

	assert.Same(t, item, vm.SuccessfulSaveLineItem)
	require.NotNil(t, item.Cost)
	assert.Equal(t, "75.00", item.Cost.StringFixed(2))

	body := fake.sentBody(t, http.MethodPut, lineItemsPath+"/4900")
	assert.Nil(t, body["start_date"])
}

func TestSaveLineItemFailureSetsBothSignals(t *testing.T) {
	fake := newFakeGateway()
	payload := `{"technician":["Technician must be filled in for type labor."]}`
	fake.respond(http.MethodPut, lineItemsPath+"/4900", 400, payload)

	vm := newTestViewModel(fake)
	item := &core.LineItem{ID: 4900, LineItemType: core.LineItemTypeLabor}
	vm.SaveLineItem(context.Background(), item)

	assert.Same(t, item, vm.ErrorSaveLineItem)
	assert.JSONEq(t, payload, string(vm.Errors))
	assert.Nil(t, vm.SuccessfulSaveLineItem)
}

func TestSaveNewLineItemAppendsToOwningJobOnly(t *testing.T) {
	fake := newFakeGateway()
	fake.respond(http.MethodPost, lineItemsPath, 200,
		`{"id":5001,"job":900,"line_item_type":"PART","cost":"12.50"}`)

	vm := newTestViewModel(fake)
	job := &core.Job{ID: 900, LineItems: []*core.LineItem{{ID: 4900}}}
	other := &core.Job{ID: 901}
	vm.Result = []*core.Job{job, other}

	zeroTime := 0
	item := &core.LineItem{LineItemType: core.LineItemTypePart, Time: &zeroTime, Technician: idPtr(0)}
	vm.SaveNewLineItem(context.Background(), item, job)

	assert.True(t, vm.NewLineItemSuccess)
	require.Len(t, job.LineItems, 2)
	assert.Equal(t, int64(5001), job.LineItems[1].ID)
	assert.Empty(t, other.LineItems)
	assert.Equal(t, int64(900), item.Job)

	body := fake.sentBody(t, http.MethodPost, lineItemsPath)
	assert.Equal(t, float64(900), body["job"])
	assert.Nil(t, body["technician"])
	assert.Nil(t, body["time"])
	assert.Nil(t, body["cost"])
}

func TestSaveNewLineItemFailureUsesDistinctErrors(t *testing.T) {
	fake := newFakeGateway()
	payload := `{"cost":["Cost must be filled in."]}`
	fake.respond(http.MethodPost, lineItemsPath, 400, payload)

	vm := newTestViewModel(fake)
	job := &core.Job{ID: 900}
	vm.SaveNewLineItem(context.Background(), &core.LineItem{LineItemType: core.LineItemTypePart}, job)

	assert.JSONEq(t, payload, string(vm.NewLineItemErrors))
	assert.Nil(t, vm.Errors)
	assert.False(t, vm.NewLineItemSuccess)
	assert.Empty(t, job.LineItems)
}

func TestCheckEmployee(t *testing.T) {
	vm := newTestViewModel(newFakeGateway())
	vm.Technicians = []core.Technician{
		{ID: 7, EmploymentType: core.EmploymentTypeEmployee},
		{ID: 8, EmploymentType: core.EmploymentTypeContractor},
	}

	tests := []struct {
		name string
		item *core.LineItem
		want bool
	}{
		{"labor by employee", &core.LineItem{LineItemType: core.LineItemTypeLabor, Technician: idPtr(7)}, true},
		{"labor by contractor", &core.LineItem{LineItemType: core.LineItemTypeLabor, Technician: idPtr(8)}, false},
		{"labor by unknown technician", &core.LineItem{LineItemType: core.LineItemTypeLabor, Technician: idPtr(99)}, false},
		{"labor without technician", &core.LineItem{LineItemType: core.LineItemTypeLabor}, false},
		{"part by employee", &core.LineItem{LineItemType: core.LineItemTypePart, Technician: idPtr(7)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vm.CheckEmployee(tt.item))
		})
	}
}

// A save's feedback reset happens when it is invoked, not when its response
// arrives. A slow failing SaveJob that completes after an unrelated
// SaveNewJob must keep its error fields: the later reset already ran.
func TestInterleavedSavesKeepLateFailure(t *testing.T) {
	fake := newFakeGateway()
	errPayload := `{"status":["Invalid status."]}`
	fake.respond(http.MethodPut, jobsPath+"/900", 400, errPayload)
	fake.respond(http.MethodPost, jobsPath, 200, `{"id":1001,"line_items":[]}`)
	started, release := fake.block(http.MethodPut, jobsPath+"/900")

	vm := newTestViewModel(fake)
	job := &core.Job{ID: 900}

	done := make(chan struct{})
	go func() {
		defer close(done)
		vm.SaveJob(context.Background(), job)
	}()
	<-started // SaveJob has reset feedback and issued its request

	vm.SaveNewJob(context.Background(), &core.Job{LaundryRoom: idPtr(1), Status: "CREATED"})
	assert.True(t, vm.NewJobSuccess)

	close(release) // now the stale SaveJob failure lands
	<-done

	assert.Same(t, job, vm.ErrorSaveJob)
	assert.JSONEq(t, errPayload, string(vm.Errors))
	// The earlier new-job success was not cleared by the late failure.
	assert.True(t, vm.NewJobSuccess)
}

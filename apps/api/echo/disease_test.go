package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhealth/core/disease"
	"github.com/trezcool/schoolhealth/tests"
)

func Test_diseaseApi_records(t *testing.T) {
	app, backend, tok := setup(t)
	backend.Handle(http.MethodGet, "/diseases", testutil.Data([]echo.Map{{"id": 5, "name": "Flu"}}))
	// both kinds hold a record 1
	backend.Handle(http.MethodGet, "/infectious-record", testutil.Data([]echo.Map{
		{"id": 1, "disease_id": 5, "student_name": "Minh", "status": disease.StatusUnderTreatment},
	}))
	backend.Handle(http.MethodGet, "/chronic-record", testutil.Data([]echo.Map{
		{"id": 1, "disease_id": 6, "student_name": "Khoa", "status": disease.StatusMonitoring},
	}))

	tests := []struct {
		httpTest
		wantKinds []string
	}{
		{
			httpTest:  httpTest{name: "both kinds", path: "/v1/disease-records?ordering=student_name", token: tok.nurse},
			wantKinds: []string{disease.KindChronic, disease.KindInfectious},
		},
		{
			httpTest:  httpTest{name: "one kind", path: "/v1/disease-records?kind=chronic-record", token: tok.admin},
			wantKinds: []string{disease.KindChronic},
		},
		{
			httpTest:  httpTest{name: "one disease", path: "/v1/disease-records?disease_id=5", token: tok.nurse},
			wantKinds: []string{disease.KindInfectious},
		},
		{
			httpTest: httpTest{name: "unknown kind", path: "/v1/disease-records?kind=lol", token: tok.nurse, wantCode: http.StatusBadRequest},
		},
		{
			httpTest: httpTest{name: "staff only", path: "/v1/disease-records", token: tok.lan, wantCode: http.StatusForbidden},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.do(t, app)
			if tt.wantCode != 0 {
				return
			}
			var records []disease.Record
			require.NoError(t, json.Unmarshal(decode[httpRes](t, rec).Data, &records))
			kinds := make([]string, 0, len(records))
			for _, r := range records {
				assert.Equal(t, "1", r.ID.String())
				kinds = append(kinds, r.Kind)
			}
			assert.Equal(t, tt.wantKinds, kinds)
		})
	}

	rec := httpTest{path: "/v1/diseases", token: tok.lan}.do(t, app)
	var diseases []disease.Disease
	require.NoError(t, json.Unmarshal(decode[httpRes](t, rec).Data, &diseases))
	assert.Equal(t, []disease.Disease{{ID: "5", Name: "Flu"}}, diseases)
}

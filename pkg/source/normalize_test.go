package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localix/preloadd/pkg/fetch"
)

func TestNormalize(t *testing.T) {
	t.Run("BareArray", func(t *testing.T) {
		r, err := Normalize([]byte(`[{"id":1},{"id":2}]`), "")
		require.NoError(t, err)
		assert.True(t, r.IsCollection())
		assert.Equal(t, 2, r.Count)
		assert.Equal(t, 2, r.Len())
		assert.Equal(t, float64(2), r.Items[1]["id"])
	})

	t.Run("EmptyArray", func(t *testing.T) {
		r, err := Normalize([]byte(`[]`), "")
		require.NoError(t, err)
		assert.NotNil(t, r.Items)
		assert.Zero(t, r.Count)
	})

	t.Run("Paginated", func(t *testing.T) {
		body := `{"count": 42, "next": "http://x/?page=2", "previous": null,
			"results": [{"id":1},{"id":2},{"id":3}]}`
		r, err := Normalize([]byte(body), "")
		require.NoError(t, err)
		assert.Len(t, r.Items, 3)
		assert.Equal(t, 42, r.Count)
	})

	t.Run("ItemsField", func(t *testing.T) {
		r, err := Normalize([]byte(`{"products":[{"sku":"a"}],"total":1}`), "products")
		require.NoError(t, err)
		require.Len(t, r.Items, 1)
		assert.Equal(t, "a", r.Items[0]["sku"])
	})

	t.Run("ItemsFieldPaginated", func(t *testing.T) {
		r, err := Normalize([]byte(`{"products":{"count":5,"results":[{"sku":"a"}]}}`), "products")
		require.NoError(t, err)
		assert.Len(t, r.Items, 1)
		assert.Equal(t, 5, r.Count)
	})

	t.Run("PlainObject", func(t *testing.T) {
		r, err := Normalize([]byte(`{"total_ventas": 1200.5, "pedidos": 14}`), "")
		require.NoError(t, err)
		assert.False(t, r.IsCollection())
		assert.Equal(t, 1, r.Count)
		assert.Equal(t, 1, r.Len())
		assert.Equal(t, 1200.5, r.Object["total_ventas"])
	})

	t.Run("ResultsNotArrayIsDocument", func(t *testing.T) {
		r, err := Normalize([]byte(`{"results": "n/a"}`), "")
		require.NoError(t, err)
		assert.False(t, r.IsCollection())
	})
}

func TestNormalizeInvalid(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"Empty":          {body: "  "},
		"Malformed":      {body: `{"id":`},
		"Null":           {body: `null`},
		"Scalar":         {body: `42`},
		"NonObjectItem":  {body: `[{"id":1}, 2]`},
		"BadResults":     {body: `{"results":[1,2]}`},
		"MissingField":   {body: `{"items":[]}`, field: "products"},
		"FieldNotObject": {body: `{"products":"none"}`, field: "products"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize([]byte(tc.body), tc.field)
			require.Error(t, err)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "want ValidationError, got %T", err)
			assert.Equal(t, fetch.KindValidation, fetch.Classify(err).Kind)
		})
	}
}

func TestFromRows(t *testing.T) {
	r := FromRows(nil)
	assert.NotNil(t, r.Items)
	assert.Zero(t, r.Count)

	r = FromRows([]map[string]any{{"id": 1}, {"id": 2}})
	assert.Equal(t, 2, r.Count)
	assert.True(t, r.IsCollection())
}

func TestParams(t *testing.T) {
	p := Params{"page_size": "50", "ordering": "-fecha_creacion"}
	assert.Equal(t, []string{"ordering", "page_size"}, p.Keys())

	c := p.Clone()
	c["page_size"] = "10"
	assert.Equal(t, "50", p["page_size"])

	assert.Nil(t, Params(nil).Clone())
}

func TestTransportErrorClassification(t *testing.T) {
	err := &TransportError{Op: "GET /productos/", StatusCode: 503}
	info := fetch.Classify(err)
	assert.Equal(t, fetch.KindTransport, info.Kind)
	assert.Equal(t, 503, info.Code)
	assert.Contains(t, err.Error(), "Service Unavailable")

	wrapped := &TransportError{Op: "GET /x/", StatusCode: 401, Err: errors.New("token expired")}
	assert.Equal(t, "GET /x/: status 401: token expired", wrapped.Error())

	noStatus := &TransportError{Op: "query products", Err: errors.New("connection refused")}
	assert.Equal(t, "query products: connection refused", noStatus.Error())
	assert.Zero(t, fetch.Classify(noStatus).Code)
}

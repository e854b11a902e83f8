package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kindedErr struct {
	kind ErrorKind
	code int
}

func (e *kindedErr) Error() string   { return fmt.Sprintf("%s failure", e.kind) }
func (e *kindedErr) Kind() ErrorKind { return e.kind }
func (e *kindedErr) Code() int       { return e.code }

func TestClassify(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.Nil(t, Classify(nil))
	})

	t.Run("KindedAndCoded", func(t *testing.T) {
		err := fmt.Errorf("load products: %w", &kindedErr{kind: KindTransport, code: 502})
		info := Classify(err)
		assert.Equal(t, KindTransport, info.Kind)
		assert.Equal(t, 502, info.Code)
		assert.Equal(t, "load products: transport failure", info.Message)
		assert.Equal(t, info.Message, info.Error())
	})

	t.Run("Validation", func(t *testing.T) {
		info := Classify(&kindedErr{kind: KindValidation})
		assert.Equal(t, KindValidation, info.Kind)
		assert.Zero(t, info.Code)
	})

	t.Run("DeadlineIsTransport", func(t *testing.T) {
		info := Classify(fmt.Errorf("get: %w", context.DeadlineExceeded))
		assert.Equal(t, KindTransport, info.Kind)
	})

	t.Run("Unknown", func(t *testing.T) {
		info := Classify(errors.New("weird"))
		assert.Equal(t, KindUnknown, info.Kind)
		assert.Equal(t, "weird", info.Message)
	})
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, IsCanceled(ErrCanceled))
	assert.True(t, IsCanceled(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.False(t, IsCanceled(context.DeadlineExceeded))
	assert.False(t, IsCanceled(nil))
}

func TestPriority(t *testing.T) {
	for _, p := range Priorities {
		parsed, err := ParsePriority(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	p, err := ParsePriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)

	assert.True(t, PriorityCritical < PriorityHigh && PriorityHigh < PriorityMedium && PriorityMedium < PriorityLow)
	assert.Equal(t, "priority(9)", Priority(9).String())

	var unset Priority
	assert.False(t, unset.Valid())
	assert.Equal(t, "unset", unset.String())
	assert.Equal(t, PriorityMedium, unset.OrDefault())
	assert.Equal(t, PriorityLow, PriorityLow.OrDefault())
	for _, p := range Priorities {
		assert.True(t, p.Valid(), p.String())
	}
	assert.False(t, Priority(9).Valid())
}

func TestPriorityJSON(t *testing.T) {
	type doc struct {
		P Priority `json:"p"`
	}

	data, err := json.Marshal(doc{P: PriorityLow})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"low"}`, string(data))

	var d doc
	require.NoError(t, json.Unmarshal([]byte(`{"p":"critical"}`), &d))
	assert.Equal(t, PriorityCritical, d.P)

	assert.Error(t, json.Unmarshal([]byte(`{"p":"nope"}`), &d))
}

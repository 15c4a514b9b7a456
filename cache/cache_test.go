// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPrimeLRU(t *testing.T) {
	p, err := NewPrimeLRU(16)
	assert.Nil(t, err)

	loads := 0
	loader := func() (interface{}, error) {
		loads++
		return "value", nil
	}

	v, err := p.GetOrLoad("key", loader)
	assert.Nil(t, err)
	assert.Equal(t, "value", v)

	v, err = p.GetOrLoad("key", loader)
	assert.Nil(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, loads)

	// a failed load caches nothing
	_, err = p.GetOrLoad("other", func() (interface{}, error) {
		return nil, errors.New("load failed")
	})
	assert.Error(t, err)
	_, err = p.GetOrLoad("other", loader)
	assert.Nil(t, err)
	assert.Equal(t, 2, loads)
}

func TestCacheStats(t *testing.T) {
	cs := &Stats{}
	cs.Hit()
	cs.Miss()
	_, hit, miss := cs.Stats()

	assert.Equal(t, int64(1), hit)
	assert.Equal(t, int64(1), miss)

	changed, _, _ := cs.Stats()
	assert.False(t, changed)

	cs.Hit()
	cs.Miss()
	assert.Equal(t, int64(3), cs.Hit())

	changed, hit, miss = cs.Stats()

	assert.Equal(t, int64(3), hit)
	assert.Equal(t, int64(2), miss)
	assert.True(t, changed)
}

package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func newMockRedis(t *testing.T, ttl int, prefix string) (*RedisCache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewRedisCacheFromClient(db, ttl, prefix), mock
}

func TestRedisCache_Get(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		expect func(redismock.ClientMock)
		want   string
		hit    bool
	}{
		{
			name:   "hit",
			prefix: "test:",
			expect: func(m redismock.ClientMock) { m.ExpectGet("test:h1:it").SetVal("Ciao") },
			want:   "Ciao",
			hit:    true,
		},
		{
			name:   "miss",
			prefix: "test:",
			expect: func(m redismock.ClientMock) { m.ExpectGet("test:h1:it").RedisNil() },
		},
		{
			name:   "error is a miss",
			prefix: "test:",
			expect: func(m redismock.ClientMock) { m.ExpectGet("test:h1:it").SetErr(errors.New("connection refused")) },
		},
		{
			name:   "default prefix",
			expect: func(m redismock.ClientMock) { m.ExpectGet("shoptl:h1:it").SetVal("Ciao") },
			want:   "Ciao",
			hit:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newMockRedis(t, 3600, tt.prefix)
			tt.expect(mock)

			got, ok := c.Get("h1:it")
			if ok != tt.hit || got != tt.want {
				t.Errorf("Get() = %q, %v; want %q, %v", got, ok, tt.want, tt.hit)
			}
		})
	}
}

func TestRedisCache_Set(t *testing.T) {
	tests := []struct {
		name string
		ttl  int
		want time.Duration
	}{
		{"with ttl", 3600, time.Hour},
		{"no expiry", 0, 0},
		{"negative ttl", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newMockRedis(t, tt.ttl, "test:")
			mock.ExpectSet("test:h1:fi", "Hei", tt.want).SetVal("OK")

			if err := c.Set("h1:fi", "Hei"); err != nil {
				t.Errorf("Set failed: %v", err)
			}
		})
	}
}

func TestRedisCache_SetError(t *testing.T) {
	c, mock := newMockRedis(t, 60, "test:")
	mock.ExpectSet("test:k", "v", time.Minute).SetErr(errors.New("OOM"))

	if err := c.Set("k", "v"); err == nil {
		t.Error("expected the Redis error")
	}
}

func TestRedisCache_Snapshot(t *testing.T) {
	c, mock := newMockRedis(t, 3600, "test:")

	mock.ExpectScan(0, "test:*", scanBatch).SetVal([]string{"test:a:it", "test:b:fr"}, 7)
	mock.ExpectMGet("test:a:it", "test:b:fr").SetVal([]interface{}{"uno", nil})
	mock.ExpectScan(7, "test:*", scanBatch).SetVal([]string{}, 9)
	mock.ExpectScan(9, "test:*", scanBatch).SetVal([]string{"test:c:de"}, 0)
	mock.ExpectMGet("test:c:de").SetVal([]interface{}{"drei"})

	entries, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	want := map[string]string{"a:it": "uno", "c:de": "drei"}
	if len(entries) != len(want) {
		t.Fatalf("Expected %v, got %v", want, entries)
	}
	for k, v := range want {
		if entries[k] != v {
			t.Errorf("entries[%q] = %q, want %q", k, entries[k], v)
		}
	}
}

func TestRedisCache_SnapshotErrors(t *testing.T) {
	t.Run("scan", func(t *testing.T) {
		c, mock := newMockRedis(t, 0, "test:")
		mock.ExpectScan(0, "test:*", scanBatch).SetErr(errors.New("READONLY"))

		if _, err := c.Snapshot(); err == nil {
			t.Error("Expected scan error")
		}
	})

	t.Run("mget", func(t *testing.T) {
		c, mock := newMockRedis(t, 0, "test:")
		mock.ExpectScan(0, "test:*", scanBatch).SetVal([]string{"test:a"}, 0)
		mock.ExpectMGet("test:a").SetErr(errors.New("LOADING"))

		if _, err := c.Snapshot(); err == nil {
			t.Error("Expected mget error")
		}
	})
}

func TestRedisCache_Ping(t *testing.T) {
	c, mock := newMockRedis(t, 0, "")
	mock.ExpectPing().SetVal("PONG")

	if err := c.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestTieredCache_SharedRedis(t *testing.T) {
	shared, mock := newMockRedis(t, 60, "test:")
	local := NewInMemoryCache(60)
	tc := NewTieredCache(local, shared)

	mock.ExpectGet("test:h:it").SetVal("Ciao")
	if v, ok := tc.Get("h:it"); !ok || v != "Ciao" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}
	// Served from the local tier now; no second GET is expected.
	if v, ok := tc.Get("h:it"); !ok || v != "Ciao" {
		t.Errorf("second Get() = %q, %v", v, ok)
	}

	mock.ExpectSet("test:h:fi", "Hei", time.Minute).SetVal("OK")
	if err := tc.Set("h:fi", "Hei"); err != nil {
		t.Errorf("Set failed: %v", err)
	}
	if v, _ := local.Get("h:fi"); v != "Hei" {
		t.Error("Set should write the local tier")
	}
}

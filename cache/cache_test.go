package cache_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"scholar/cache"
)

type cachedData struct {
	Name string
	Cnt  int
}

func TestCache(t *testing.T) {
	c, err := cache.New[cachedData]("somebucket", filepath.Join(t.TempDir(), "test.db"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.Lookup("xyz") != nil {
		t.Fatal("should be no cached result")
	}

	c.Update("xyz", cachedData{"xyz", 2})

	res1 := c.Lookup("xyz")
	if res1 == nil || res1.Name != "xyz" || res1.Cnt != 2 {
		t.Fatal("invalid cached result")
	}

	if c.Lookup("abc") != nil {
		t.Fatal("should be no cached result")
	}

	c.Update("xyz", cachedData{"xyz-2", 5})

	res2 := c.Lookup("xyz")
	if res2 == nil || res2.Name != "xyz-2" || res2.Cnt != 5 {
		t.Fatal("invalid cached result")
	}
}

func TestCacheExpiry(t *testing.T) {
	c, err := cache.New[int]("counts", filepath.Join(t.TempDir(), "test.db"), 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	c.Update("k", 7)

	if res := c.Lookup("k"); res == nil || *res != 7 {
		t.Fatal("expected fresh entry")
	}

	cache.SetNowForTest(c, func() time.Time { return time.Now().Add(11 * time.Minute) })

	if c.Lookup("k") != nil {
		t.Fatal("expected entry to be expired")
	}
}

func TestGetOrCompute(t *testing.T) {
	c, err := cache.New[string]("values", filepath.Join(t.TempDir(), "test.db"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	calls := 0
	compute := func() (string, error) {
		calls++
		return "computed", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil {
			t.Fatal(err)
		}
		if v != "computed" {
			t.Fatalf("unexpected value %q", v)
		}
	}

	if calls != 1 {
		t.Fatalf("expected a single compute call, got %d", calls)
	}

	if _, err := c.GetOrCompute("bad", func() (string, error) {
		return "", errors.New("upstream down")
	}); err == nil {
		t.Fatal("expected compute error to propagate")
	}

	if c.Lookup("bad") != nil {
		t.Fatal("failed compute should not be cached")
	}
}

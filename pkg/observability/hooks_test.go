package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Remesh hooks
	r := NoopRemeshHooks{}
	r.OnRemeshStart(ctx, "subdivide+collapse", 128)
	r.OnRemeshComplete(ctx, RemeshReport{Mode: "subdivide", Modified: true, Splits: 4})

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "bunny.obj")
	p.OnLoadComplete(ctx, "bunny.obj", 100, time.Second, nil)
	p.OnExportStart(ctx, "obj")
	p.OnExportComplete(ctx, "obj", 2048, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "mesh")
	c.OnCacheMiss(ctx, "mesh")
	c.OnCacheSet(ctx, "mesh", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/remesh")
	h.OnResponse(ctx, "POST", "/remesh", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Remesh().(NoopRemeshHooks); !ok {
		t.Error("Remesh() should return NoopRemeshHooks by default")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customRemesh := &testRemeshHooks{}
	SetRemeshHooks(customRemesh)
	if Remesh() != customRemesh {
		t.Error("SetRemeshHooks should set custom hooks")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Remesh().(NoopRemeshHooks); !ok {
		t.Error("Reset() should restore NoopRemeshHooks")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testRemeshHooks{}
	SetRemeshHooks(custom)

	// Setting nil should be ignored
	SetRemeshHooks(nil)

	if Remesh() != custom {
		t.Error("SetRemeshHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testRemeshHooks struct{ NoopRemeshHooks }
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

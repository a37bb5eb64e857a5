//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/engine"
)

var session *engine.Session

func main() {
	var err error
	session, err = engine.NewSampleSession(construction.KindVertical)
	if err != nil {
		panic(err)
	}

	// Create the engine API object
	angleEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → session) ---
	angleEngine.Set("loadProblem", js.FuncOf(loadProblem))
	angleEngine.Set("loadSampleProblem", js.FuncOf(loadSampleProblem))
	angleEngine.Set("onPointDragStart", js.FuncOf(onPointDragStart))
	angleEngine.Set("onPointDragMove", js.FuncOf(onPointDragMove))
	angleEngine.Set("onPointDragEnd", js.FuncOf(onPointDragEnd))
	angleEngine.Set("onShapeDragStart", js.FuncOf(onShapeDragStart))
	angleEngine.Set("onShapeDragEnd", js.FuncOf(onShapeDragEnd))
	angleEngine.Set("onRegionClick", js.FuncOf(onRegionClick))

	// --- Queries (frontend ← session) ---
	angleEngine.Set("getRenderablePoints", js.FuncOf(getRenderablePoints))
	angleEngine.Set("getRenderableSegments", js.FuncOf(getRenderableSegments))
	angleEngine.Set("getAngleRegions", js.FuncOf(getAngleRegions))
	angleEngine.Set("getSnapshot", js.FuncOf(getSnapshot))
	angleEngine.Set("getProblem", js.FuncOf(getProblem))
	angleEngine.Set("getState", js.FuncOf(getState))
	angleEngine.Set("getBounds", js.FuncOf(getBounds))
	angleEngine.Set("render", js.FuncOf(render))
	angleEngine.Set("hitTest", js.FuncOf(hitTest))

	// Register on global scope
	js.Global().Set("angleEngine", angleEngine)

	// Signal that WASM is ready
	js.Global().Set("angleWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadProblem(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("problem JSON")
	}
	if err := session.LoadProblem(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func loadSampleProblem(this js.Value, args []js.Value) interface{} {
	kind := construction.KindVertical
	if len(args) > 0 && args[0].Type() == js.TypeString {
		kind = construction.Kind(args[0].String())
	}
	if err := session.LoadSampleProblem(kind); err != nil {
		return fail(err)
	}
	return ok()
}

func onPointDragStart(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("point id")
	}
	if err := session.BeginDrag(args[0].Int()); err != nil {
		return fail(err)
	}
	return ok()
}

func onPointDragMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("point id and position")
	}
	if err := session.DragMove(args[0].Int(), args[1].Float(), args[2].Float()); err != nil {
		return fail(err)
	}
	return ok()
}

func onPointDragEnd(this js.Value, args []js.Value) interface{} {
	session.EndDrag()
	return ok()
}

func onShapeDragStart(this js.Value, args []js.Value) interface{} {
	if err := session.BeginShapeTranslate(); err != nil {
		return fail(err)
	}
	return ok()
}

func onShapeDragEnd(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("offset")
	}
	if err := session.ShapeDragEnd(args[0].Float(), args[1].Float()); err != nil {
		return fail(err)
	}
	return ok()
}

func onRegionClick(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("color key")
	}
	if err := session.ClickRegion(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

// --- Query Handlers ---

func getRenderablePoints(this js.Value, args []js.Value) interface{} {
	return toJSON(session.RenderablePoints())
}

func getRenderableSegments(this js.Value, args []js.Value) interface{} {
	return toJSON(session.RenderableSegments())
}

func getAngleRegions(this js.Value, args []js.Value) interface{} {
	return toJSON(session.AngleRegions())
}

func getSnapshot(this js.Value, args []js.Value) interface{} {
	return toJSON(session.Snapshot())
}

func getProblem(this js.Value, args []js.Value) interface{} {
	return toJSON(session.Problem())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(session.State()))
}

func getBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(engine.RectToJSON(session.Bounds()))
}

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return toJSON(engine.HitTestResult{})
	}
	return toJSON(session.HitTest(args[0].Float(), args[1].Float()))
}

package source

import (
	"fmt"
	"strings"
	"sync"
)

// Adapter extracts passage text from a hit payload. It never fails: absent fields become
// empty strings and their names are returned in missing.
type Adapter func(payload map[string]any) (text string, missing []string)

// Built-in adapter names.
const (
	AdapterMaintenanceLog = "maintenance_log"
	AdapterIncidentReport = "incident_report"
	AdapterGeneric        = "generic"
)

var (
	adaptersMu sync.RWMutex
	adapters   = map[string]Adapter{
		AdapterMaintenanceLog: maintenanceLogAdapter,
		AdapterIncidentReport: incidentReportAdapter,
		AdapterGeneric:        genericAdapter,
	}
)

// RegisterAdapter adds or replaces a named adapter.
func RegisterAdapter(name string, a Adapter) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapters[name] = a
}

// LookupAdapter returns the adapter registered under name.
func LookupAdapter(name string) (Adapter, error) {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()
	a, ok := adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown payload adapter: %s", name)
	}
	return a, nil
}

// maintenanceLogAdapter reads work-order payloads: a reported problem and the corrective action.
func maintenanceLogAdapter(payload map[string]any) (string, []string) {
	var missing []string
	problem := field(payload, "problem", &missing)
	action := field(payload, "action", &missing)
	return fmt.Sprintf("Problem: %s\nAction: %s", problem, action), missing
}

// incidentReportAdapter reads incident-report payloads: the narrative chunk and its synopsis.
func incidentReportAdapter(payload map[string]any) (string, []string) {
	var missing []string
	chunk := field(payload, "text_chunk", &missing)
	synopsis := field(payload, "synp", &missing)
	if synopsis == "" {
		return chunk, missing
	}
	return fmt.Sprintf("%s\nSynopsis: %s", chunk, synopsis), missing
}

func genericAdapter(payload map[string]any) (string, []string) {
	if s := stringValue(payload["text"]); s != "" {
		return s, nil
	}
	if s := stringValue(payload["section_text"]); s != "" {
		return s, nil
	}
	return "", []string{"text", "section_text"}
}

func field(payload map[string]any, name string, missing *[]string) string {
	v, ok := payload[name]
	if !ok || v == nil {
		*missing = append(*missing, name)
		return ""
	}
	return stringValue(v)
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

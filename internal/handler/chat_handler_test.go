package handler

import (
	"testing"
	"time"

	"dine_chat/internal/model"
)

func TestBuildRosterWorkbook(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	f, err := buildRosterWorkbook([]model.RosterEntry{
		{UserId: "a@x.com", LastMessage: "hello", LastTimestamp: "2024-05-01T10:00:00", Unread: 2, Online: true},
		{UserId: "b@x.com", LastTimestamp: "not a time"},
	}, loc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != rosterSheet {
		t.Fatalf("sheets %v", sheets)
	}
	want := map[string]string{
		"A1": "Customer",
		"A2": "a@x.com",
		"B2": "yes",
		"C2": "2",
		"D2": "hello",
		"E2": "2024-05-01 18:00",
		"B3": "no",
		"E3": "not a time",
	}
	for cell, v := range want {
		got, err := f.GetCellValue(rosterSheet, cell)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if got != v {
			t.Errorf("%s = %q, want %q", cell, got, v)
		}
	}
}

package store

import (
	"reflect"
	"testing"
)

func TestWriteCreatesParents(t *testing.T) {
	s := Memory()
	if err := s.Write("database/migrations/x.php", "<?php"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Exists("database/migrations") {
		t.Error("parent directory was not created")
	}
	got, err := s.Read("database/migrations/x.php")
	if err != nil || got != "<?php" {
		t.Errorf("Read = %q, %v", got, err)
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := Memory().Read("nope.php"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestListMatchingIsSorted(t *testing.T) {
	s := Memory()
	for _, name := range []string{
		"m/2024_05_01_000000_update_posts_table.php",
		"m/2024_01_01_000000_create_posts_table.php",
		"m/2024_03_01_000000_update_posts_table.php",
		"m/2024_03_01_000000_update_post_tags_table.php",
	} {
		if err := s.Write(name, ""); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListMatching("m/*_update_posts_table.php")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"m/2024_03_01_000000_update_posts_table.php",
		"m/2024_05_01_000000_update_posts_table.php",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListMatching = %v, want %v", got, want)
	}
}

package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	// /tmp/
	//   project/ (.moss)
	//     subdir/
	//       nested/
	//   empty/

	baseDir := t.TempDir()
	projectDir := filepath.Join(baseDir, "project")
	subDir := filepath.Join(projectDir, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	emptyDir := filepath.Join(baseDir, "empty")
	dataDir := filepath.Join(projectDir, DefaultDirName)

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(emptyDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(dataDir, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{
			name:      "Start at Root",
			startPath: projectDir,
			wantRoot:  dataDir,
		},
		{
			name:      "Start in Subdir",
			startPath: subDir,
			wantRoot:  dataDir,
		},
		{
			name:      "Start Nested Deeply",
			startPath: nestedDir,
			wantRoot:  dataDir,
		},
		{
			name:      "No Root Found",
			startPath: emptyDir,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("FindRoot() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != "" && filepath.Clean(got) != filepath.Clean(tt.wantRoot) {
				t.Errorf("FindRoot() = %v, want %v", got, tt.wantRoot)
			}
		})
	}
}

func TestFindRootIgnoresMarkerFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultDirName), []byte("not a dir"), 0644); err != nil {
		t.Fatal(err)
	}
	// A stray file named .moss higher up (e.g. in /tmp) would still be
	// skipped because only directories count.
	got, err := FindRoot(dir)
	if err == nil && got == filepath.Join(dir, DefaultDirName) {
		t.Errorf("FindRoot() accepted a plain file: %s", got)
	}
}

package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleDiff = `diff --git a/main.go b/main.go
index 83db48f..bf269f4 100644
--- a/main.go
+++ b/main.go
@@ -1,4 +1,4 @@
 package main
-import "fmt"
+import "log"
 func main() {
+	log.Println("hi")
 }
diff --git a/.github/workflows/ci.yml b/.github/workflows/ci.yml
new file mode 100644
--- /dev/null
+++ b/.github/workflows/ci.yml
@@ -0,0 +1 @@
+name: ci`

func TestExtractCode(t *testing.T) {
	expected := `diff --git a/main.go b/main.go
index 83db48f..bf269f4 100644
--- a/main.go
+++ b/main.go
@@ -1,4 +1,4 @@
 package main
import "log"
 func main() {
	log.Println("hi")
 }
diff --git a/.github/workflows/ci.yml b/.github/workflows/ci.yml
new file mode 100644
--- /dev/null
+++ b/.github/workflows/ci.yml
@@ -0,0 +1 @@
name: ci`

	assert.Equal(t, expected, ExtractCode(sampleDiff))
}

func TestExtractCode_PassThrough(t *testing.T) {
	inputs := []string{
		"",
		"package main\n\nfunc main() {}\n",
		"line with + inside\r\nand - here\r\n",
		"\n\n\n",
	}

	for _, in := range inputs {
		out := ExtractCode(in)
		assert.Equal(t, in, out)
		assert.Equal(t, out, ExtractCode(out))
	}
}

func TestExtractCode_EdgeMarkers(t *testing.T) {
	assert.Equal(t, "", ExtractCode("+"))
	assert.Equal(t, "x\n", ExtractCode("-gone\nx\n"))
	assert.Equal(t, "+++ header\n--- header", ExtractCode("+++ header\n--- header"))
}

func TestChangedFiles(t *testing.T) {
	assert.Equal(t, []string{"main.go", ".github/workflows/ci.yml"}, ChangedFiles(sampleDiff))
	assert.Empty(t, ChangedFiles("no headers here"))
}

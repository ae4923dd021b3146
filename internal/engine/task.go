package engine

// FileTask describes one subtitle file to translate. Identity is the
// relative path: each relative path appears in at most one task per
// run, which guarantees a single writer per original file.
type FileTask struct {
	RelPath string
	AbsPath string
}

// BatchResult is the outcome of processing one FileTask.
type BatchResult struct {
	Task     FileTask
	TempPath string // populated on success
	Err      error  // populated on failure
}

// Success reports whether the task produced a committed-ready temp file.
func (r BatchResult) Success() bool { return r.Err == nil }

// chunkTasks partitions tasks into fixed-size chunks. Chunking bounds
// in-flight work and gives progress reporting its granularity; it has
// no correctness role.
func chunkTasks(tasks []FileTask, size int) [][]FileTask {
	if size <= 0 {
		size = 1
	}
	var chunks [][]FileTask
	for start := 0; start < len(tasks); start += size {
		end := start + size
		if end > len(tasks) {
			end = len(tasks)
		}
		chunks = append(chunks, tasks[start:end])
	}
	return chunks
}

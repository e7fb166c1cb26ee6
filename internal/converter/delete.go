package converter

import (
	"os"

	"imageconvert/internal/logger"
)

// DeleteFiles removes every file of class recorded in the ledger, in
// conversion order. It stops at the first failure and returns a
// *DeletionError; success then counts the files removed before it. Files
// already removed stay removed. The ledger itself is not modified.
func (e *Engine) DeleteFiles(class FileClass) (success, total int, err error) {
	paths, err := e.ledger.Paths(class)
	if err != nil {
		return 0, 0, err
	}
	total = len(paths)

	for _, path := range paths {
		log := logger.ForFile(e.logger, "delete", path)
		if err := os.Remove(path); err != nil {
			log.WithError(err).Error("Deletion failed")
			for _, o := range e.observers {
				o.DeletionFailed(path, err)
			}
			return success, total, &DeletionError{Path: path, Err: err}
		}
		success++
		log.Debug("Deleted")
		for _, o := range e.observers {
			o.FileDeleted(path)
		}
	}

	e.logger.WithField("class", class).Infof("Deleted %d/%d files", success, total)
	return success, total, nil
}

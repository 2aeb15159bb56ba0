package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/errors"
)

const (
	BackupFileField = "backup_file"
	MessageRestored = "database restored successfully"
)

type BackupHandler struct {
	backups controllers.BackupController
	logger  *zap.Logger
}

func NewBackupHandler(backups controllers.BackupController, logger *zap.Logger) *BackupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupHandler{backups: backups, logger: logger}
}

// Backup streams a plain SQL dump as a download.
func (h *BackupHandler) Backup(c *gin.Context) {
	dump, filename, err := h.backups.Backup(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/sql", dump)
}

// Restore replays the uploaded backup_file and returns to the admin panel.
func (h *BackupHandler) Restore(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	redirect := PanelPath(p)

	header, err := c.FormFile(BackupFileField)
	if err != nil {
		status, flash := errorFlash(h.logger, errors.ErrInvalidInput.WithReason("select a backup file (.sql)"), "")
		respondFlash(c, redirect, status, flash)
		return
	}
	f, err := header.Open()
	if err != nil {
		status, flash := errorFlash(h.logger, errors.ErrInternal.WithReason("could not read the uploaded file"), "")
		respondFlash(c, redirect, status, flash)
		return
	}
	defer f.Close()

	if err := h.backups.Restore(c.Request.Context(), header.Filename, f); err != nil {
		status, flash := errorFlash(h.logger, err, "restore")
		respondFlash(c, redirect, status, flash)
		return
	}
	respondFlash(c, redirect, http.StatusOK, Flash{Level: FlashSuccess, Messages: []string{MessageRestored}})
}

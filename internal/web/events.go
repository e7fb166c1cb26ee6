package web

import (
	"imageconvert/internal/converter"
)

// wsObserver forwards engine progress to websocket clients.
type wsObserver struct {
	converter.NopObserver
	server *Server
}

func (o *wsObserver) ConversionStarted(total int) {
	o.server.operationMutex.RLock()
	job := *o.server.lastJob
	o.server.operationMutex.RUnlock()

	o.server.broadcastWSMessage("convert_started", map[string]interface{}{
		"directory":        job.Directory,
		"source_extension": job.SourceExtension,
		"target_extension": job.TargetExtension,
		"compression":      job.Compression,
		"total":            total,
	})
}

func (o *wsObserver) FileConverted(c converter.Conversion) {
	o.server.broadcastWSMessage("file_converted", map[string]interface{}{
		"source":      c.Source,
		"target":      c.Target,
		"format":      c.SourceFormat.String(),
		"mode":        c.Mode,
		"flattened":   c.Flattened,
		"source_size": c.SourceSize,
		"target_size": c.TargetSize,
		"index":       c.Index,
		"total":       c.Total,
	})
}

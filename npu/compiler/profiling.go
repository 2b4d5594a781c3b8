package compiler

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Profiling output is an array of fixed size records in the device's
// layout: two fixed width name fields followed by status, timestamps and
// the per engine execution times, all little endian.
// LayerRecordSize is the size in bytes of one profiling record.
const LayerRecordSize = 368

const (
	layerNameLen     = 256
	layerTypeLen     = 50
	layerStatusOff   = 308
	layerStartOff    = 312
	layerDurationOff = 320
	layerIDOff       = 328
	layerFusedOff    = 336
	layerDPUOff      = 344
	layerSWOff       = 352
	layerDMAOff      = 360
)

// LayerStatus is the execution status of a profiled layer.
type LayerStatus uint32

const (
	LayerStatusNotRun LayerStatus = iota
	LayerStatusOptimizedOut
	LayerStatusExecuted
)

// String returns the status name used in performance reports.
func (s LayerStatus) String() string {
	switch s {
	case LayerStatusNotRun:
		return "NOT_RUN"
	case LayerStatusOptimizedOut:
		return "OPTIMIZED_OUT"
	case LayerStatusExecuted:
		return "EXECUTED"
	}
	return "UNKNOWN"
}

// LayerInfo is one decoded profiling record.
type LayerInfo struct {
	Name   string
	Type   string
	Status LayerStatus

	StartTimeNs uint64
	DurationNs  uint64

	LayerID      uint32
	FusedLayerID uint64

	// Execution time split per engine.
	DPUNs uint64
	SWNs  uint64
	DMANs uint64
}

func cString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

// DecodeLayerInfo decodes a raw profiling buffer into layer records. The
// buffer must be a whole number of records.
func DecodeLayerInfo(data []byte) ([]LayerInfo, error) {
	if len(data)%LayerRecordSize != 0 {
		return nil, errors.Errorf("profiling buffer of %d bytes is not a multiple of the %d byte record size",
			len(data), LayerRecordSize)
	}
	layers := make([]LayerInfo, 0, len(data)/LayerRecordSize)
	for off := 0; off < len(data); off += LayerRecordSize {
		rec := data[off : off+LayerRecordSize]
		layers = append(layers, LayerInfo{
			Name:         cString(rec[:layerNameLen]),
			Type:         cString(rec[layerNameLen : layerNameLen+layerTypeLen]),
			Status:       LayerStatus(binary.LittleEndian.Uint32(rec[layerStatusOff:])),
			StartTimeNs:  binary.LittleEndian.Uint64(rec[layerStartOff:]),
			DurationNs:   binary.LittleEndian.Uint64(rec[layerDurationOff:]),
			LayerID:      binary.LittleEndian.Uint32(rec[layerIDOff:]),
			FusedLayerID: binary.LittleEndian.Uint64(rec[layerFusedOff:]),
			DPUNs:        binary.LittleEndian.Uint64(rec[layerDPUOff:]),
			SWNs:         binary.LittleEndian.Uint64(rec[layerSWOff:]),
			DMANs:        binary.LittleEndian.Uint64(rec[layerDMAOff:]),
		})
	}
	return layers, nil
}

// EncodeLayerInfo is the inverse of DecodeLayerInfo. Names longer than the
// record's fixed name fields are truncated.
func EncodeLayerInfo(layers []LayerInfo) []byte {
	data := make([]byte, len(layers)*LayerRecordSize)
	for i, layer := range layers {
		rec := data[i*LayerRecordSize:]
		copy(rec[:layerNameLen-1], layer.Name)
		copy(rec[layerNameLen:layerNameLen+layerTypeLen-1], layer.Type)
		binary.LittleEndian.PutUint32(rec[layerStatusOff:], uint32(layer.Status))
		binary.LittleEndian.PutUint64(rec[layerStartOff:], layer.StartTimeNs)
		binary.LittleEndian.PutUint64(rec[layerDurationOff:], layer.DurationNs)
		binary.LittleEndian.PutUint32(rec[layerIDOff:], layer.LayerID)
		binary.LittleEndian.PutUint64(rec[layerFusedOff:], layer.FusedLayerID)
		binary.LittleEndian.PutUint64(rec[layerDPUOff:], layer.DPUNs)
		binary.LittleEndian.PutUint64(rec[layerSWOff:], layer.SWNs)
		binary.LittleEndian.PutUint64(rec[layerDMAOff:], layer.DMANs)
	}
	return data
}

// ProfilingInfo is one entry of a performance counters report.
type ProfilingInfo struct {
	Name     string
	Type     string
	Status   LayerStatus
	RealTime time.Duration
	CPUTime  time.Duration

	// ExecType names the engine that dominated the layer's execution
	// time: "DPU", "SW" or "DMA". Empty when the layer reports no
	// engine time.
	ExecType string
}

// ToProfilingInfo converts decoded layer records into performance counter
// entries, preserving order.
func ToProfilingInfo(layers []LayerInfo) []ProfilingInfo {
	infos := make([]ProfilingInfo, 0, len(layers))
	for _, layer := range layers {
		info := ProfilingInfo{
			Name:     layer.Name,
			Type:     layer.Type,
			Status:   layer.Status,
			RealTime: time.Duration(layer.DurationNs),
			CPUTime:  time.Duration(layer.SWNs),
		}
		switch max(layer.DPUNs, layer.SWNs, layer.DMANs) {
		case 0:
		case layer.DPUNs:
			info.ExecType = "DPU"
		case layer.SWNs:
			info.ExecType = "SW"
		case layer.DMANs:
			info.ExecType = "DMA"
		}
		infos = append(infos, info)
	}
	return infos
}

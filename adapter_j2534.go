package godiag

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/spacetec/godiag/pkg/passthru"
)

// J2534 drives a PassThru device over the raw CAN protocol. The engine
// does its own ISO-TP, so the ISO15765 convenience protocol is not
// used. The vendor library handle is supplied by the platform layer;
// this adapter is therefore constructed directly rather than through
// the registry.
type J2534 struct {
	BaseAdapter
	dev       passthru.Device
	deviceID  uint32
	channelID uint32
	filterIDs []uint32
}

func NewJ2534(dev passthru.Device, cfg *AdapterConfig) (*J2534, error) {
	if dev == nil {
		return nil, ErrNilAdapter
	}
	return &J2534{
		BaseAdapter: NewBaseAdapter("J2534", cfg),
		dev:         dev,
	}, nil
}

// passthruError lifts a raw J2534 status into the diagnostic error
// taxonomy so PassThru paths fail the same way serial or SocketCAN
// paths do.
func passthruError(err error) error {
	var se *passthru.StatusError
	if !errors.As(err, &se) {
		return err
	}
	msg := se.Error()
	switch se.Status {
	case passthru.ERR_TIMEOUT, passthru.ERR_BUFFER_EMPTY:
		return Connectivity("CONN_TIMEOUT", msg, nil)
	case passthru.ERR_DEVICE_NOT_CONNECTED:
		return Connectivity("CONN_LOST", msg, nil)
	case passthru.ERR_BUFFER_FULL, passthru.ERR_BUFFER_OVERFLOW:
		return Hardware("HW_BUFFER_OVERFLOW", msg, nil)
	case passthru.ERR_FAILED, passthru.ERR_DEVICE_IN_USE, passthru.ERR_CHANNEL_IN_USE:
		return Hardware("HW_FAILURE", msg, nil)
	case passthru.ERR_INVALID_MSG:
		return Parsing("PARSE_MALFORMED", msg, nil)
	case passthru.ERR_NOT_SUPPORTED, passthru.ERR_INVALID_CHANNEL_ID,
		passthru.ERR_INVALID_PROTOCOL_ID, passthru.ERR_NULL_PARAMETER,
		passthru.ERR_INVALID_IOCTL_VALUE, passthru.ERR_INVALID_FLAGS,
		passthru.ERR_INVALID_TIME_INTERVAL, passthru.ERR_EXCEEDED_LIMIT,
		passthru.ERR_INVALID_MSG_ID, passthru.ERR_INVALID_IOCTL_ID,
		passthru.ERR_PIN_INVALID, passthru.ERR_MSG_PROTOCOL_ID,
		passthru.ERR_INVALID_FILTER_ID, passthru.ERR_NO_FLOW_CONTROL,
		passthru.ERR_NOT_UNIQUE, passthru.ERR_INVALID_BAUDRATE,
		passthru.ERR_INVALID_DEVICE_ID:
		return Configuration("CFG_BAD_REQUEST", msg, nil)
	default:
		return Unknown(msg, nil)
	}
}

func (j *J2534) Open(ctx context.Context) error {
	if err := j.dev.Open(j.cfg.Port, &j.deviceID); err != nil {
		return passthruError(err)
	}
	baud := uint32(j.cfg.CANRate * 1000)
	if baud == 0 {
		baud = 500000
	}
	if err := j.dev.Connect(j.deviceID, passthru.CAN, passthru.CAN_ID_BOTH, baud, &j.channelID); err != nil {
		j.dev.Close(j.deviceID)
		return passthruError(err)
	}
	if err := j.startFilters(); err != nil {
		j.dev.Disconnect(j.channelID)
		j.dev.Close(j.deviceID)
		return passthruError(err)
	}
	go j.sendManager(ctx)
	go j.recvManager(ctx)
	return nil
}

func (j *J2534) Close() error {
	j.CloseBase()
	for _, id := range j.filterIDs {
		j.dev.StopMsgFilter(j.channelID, id)
	}
	if err := j.dev.Disconnect(j.channelID); err != nil {
		j.dev.Close(j.deviceID)
		return passthruError(err)
	}
	return passthruError(j.dev.Close(j.deviceID))
}

// startFilters programs one PASS_FILTER per configured CANFilter. With
// no filters a match-nothing mask of zero passes everything.
func (j *J2534) startFilters() error {
	filters := j.cfg.Filters
	if len(filters) == 0 {
		filters = []CANFilter{{ID: 0, Mask: 0}}
	}
	for _, f := range filters {
		mask := &passthru.Msg{ProtocolID: passthru.CAN, DataSize: 4}
		pattern := &passthru.Msg{ProtocolID: passthru.CAN, DataSize: 4}
		binary.BigEndian.PutUint32(mask.Data[:4], f.Mask)
		binary.BigEndian.PutUint32(pattern.Data[:4], f.ID&f.Mask)
		var filterID uint32
		if err := j.dev.StartMsgFilter(j.channelID, passthru.PASS_FILTER, mask, pattern, nil, &filterID); err != nil {
			return err
		}
		j.filterIDs = append(j.filterIDs, filterID)
	}
	return nil
}

func (j *J2534) sendManager(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.closeChan:
			return
		case frame := <-j.sendChan:
			msg := &passthru.Msg{
				ProtocolID: passthru.CAN,
				DataSize:   uint32(4 + len(frame.Data)),
			}
			if frame.Extended {
				msg.TxFlags = passthru.CAN_29BIT_ID
			}
			binary.BigEndian.PutUint32(msg.Data[:4], frame.Identifier)
			copy(msg.Data[4:], frame.Data)
			num := uint32(1)
			if err := j.dev.WriteMsgs(j.channelID, msg, &num, 500); err != nil {
				j.Fatal(passthruError(err))
				return
			}
		}
	}
}

func (j *J2534) recvManager(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-j.closeChan:
			return
		default:
		}
		msg := &passthru.Msg{}
		num := uint32(1)
		if err := j.dev.ReadMsgs(j.channelID, msg, &num, 100); err != nil {
			var se *passthru.StatusError
			if errors.As(err, &se) && (se.Status == passthru.ERR_TIMEOUT || se.Status == passthru.ERR_BUFFER_EMPTY) {
				continue
			}
			j.Fatal(passthruError(err))
			return
		}
		if num == 0 {
			continue
		}
		frame, err := j.toFrame(msg)
		if err != nil {
			j.Error(err)
			continue
		}
		select {
		case j.recvChan <- frame:
		default:
			j.Error(ErrDroppedFrame)
		}
	}
}

func (j *J2534) toFrame(msg *passthru.Msg) (*CANFrame, error) {
	if msg.DataSize < 4 || msg.DataSize > 12 {
		return nil, Parsing("PARSE_SHORT", fmt.Sprintf("PassThru message size %d", msg.DataSize), nil)
	}
	id := binary.BigEndian.Uint32(msg.Data[:4])
	data := msg.Data[4:msg.DataSize]
	if msg.RxStatus&passthru.CAN_29BIT_ID != 0 {
		return NewExtendedFrame(id, data, Incoming)
	}
	return NewFrame(id&MaxStandardID, data, Incoming)
}

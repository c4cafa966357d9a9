package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/daxxac/talk-tile-buddy/internal/ipc"
	"github.com/daxxac/talk-tile-buddy/internal/store"
	"google.golang.org/protobuf/types/known/structpb"
)

// Payload and data travel as JSON strings inside the Struct so integers and nested
// documents survive unchanged.

func encodeRequest(req ipc.Request) (*structpb.Struct, error) {
	args := make([]any, 0, len(req.Args))
	for _, arg := range req.Args {
		args = append(args, arg)
	}
	fields := map[string]any{
		"command": req.Command,
		"args":    args,
		"payload": string(req.Payload),
	}
	if req.CaregiverPIN != nil {
		fields["caregiverPin"] = *req.CaregiverPIN
	}
	return structpb.NewStruct(fields)
}

func decodeRequest(msg *structpb.Struct) (ipc.Request, error) {
	fields := msg.GetFields()
	req := ipc.Request{Command: fields["command"].GetStringValue()}
	if req.Command == "" {
		return ipc.Request{}, fmt.Errorf("request has no command")
	}
	for _, v := range fields["args"].GetListValue().GetValues() {
		req.Args = append(req.Args, v.GetStringValue())
	}
	if payload := fields["payload"].GetStringValue(); payload != "" {
		if !json.Valid([]byte(payload)) {
			return ipc.Request{}, fmt.Errorf("%s: payload is not valid JSON", req.Command)
		}
		req.Payload = json.RawMessage(payload)
	}
	if v, ok := fields["caregiverPin"]; ok {
		caregiverPIN := v.GetStringValue()
		req.CaregiverPIN = &caregiverPIN
	}
	return req, nil
}

func encodeResponse(resp ipc.Response) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"ok":      resp.OK,
		"state":   resp.State,
		"message": resp.Message,
		"error":   resp.Error,
		"data":    string(resp.Data),
	})
}

func decodeResponse(msg *structpb.Struct) ipc.Response {
	fields := msg.GetFields()
	resp := ipc.Response{
		OK:      fields["ok"].GetBoolValue(),
		State:   fields["state"].GetStringValue(),
		Message: fields["message"].GetStringValue(),
		Error:   fields["error"].GetStringValue(),
	}
	if data := fields["data"].GetStringValue(); data != "" {
		resp.Data = json.RawMessage(data)
	}
	return resp
}

func encodeChange(change store.Change) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"op":      change.Op,
		"durable": change.Durable,
		"seq":     strconv.FormatUint(change.Seq, 10),
	})
}

func decodeChange(msg *structpb.Struct) (store.Change, error) {
	fields := msg.GetFields()
	change := store.Change{
		Op:      fields["op"].GetStringValue(),
		Durable: fields["durable"].GetBoolValue(),
	}
	seq, err := strconv.ParseUint(fields["seq"].GetStringValue(), 10, 64)
	if err != nil {
		return store.Change{}, fmt.Errorf("decode change seq: %w", err)
	}
	change.Seq = seq
	return change, nil
}

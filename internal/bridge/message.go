package bridge

import (
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	DecisionPremium = "premium"
	DecisionCracked = "cracked"
)

// Request is a login attempt as reported by the host.
type Request struct {
	Username string
	Address  string
	Bedrock  bool
}

func (r *Request) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"username": r.Username,
		"address":  r.Address,
		"bedrock":  r.Bedrock,
	})
}

func requestFromStruct(s *structpb.Struct) *Request {
	fields := s.GetFields()
	return &Request{
		Username: fields["username"].GetStringValue(),
		Address:  fields["address"].GetStringValue(),
		Bedrock:  fields["bedrock"].GetBoolValue(),
	}
}

// Result tells the host how to continue the login.
type Result struct {
	Decision   string
	Registered bool
	UUID       string
	Name       string
}

func (r *Result) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"decision":   r.Decision,
		"registered": r.Registered,
		"uuid":       r.UUID,
		"name":       r.Name,
	})
}

func resultFromStruct(s *structpb.Struct) *Result {
	fields := s.GetFields()
	return &Result{
		Decision:   fields["decision"].GetStringValue(),
		Registered: fields["registered"].GetBoolValue(),
		UUID:       fields["uuid"].GetStringValue(),
		Name:       fields["name"].GetStringValue(),
	}
}

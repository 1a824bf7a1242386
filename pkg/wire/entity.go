package wire

import "google.golang.org/protobuf/encoding/protowire"

// EntityInfo is an entity enumeration response (ListEntities*Response).
// Kind-specific fields beyond the common header stay in Fields.
type EntityInfo struct {
	MsgType  MessageType
	ObjectID string
	Key      uint32
	Name     string
	UniqueID string

	// Fields holds every field other than the four above.
	Fields Fields
}

func (m *EntityInfo) Type() MessageType { return m.MsgType }

func (m *EntityInfo) Marshal(b []byte) []byte {
	b = appendString(b, 1, m.ObjectID)
	b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, m.Key)
	b = appendString(b, 3, m.Name)
	b = appendString(b, 4, m.UniqueID)
	return m.Fields.Marshal(b)
}

func (m *EntityInfo) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	m.ObjectID = f.String(1)
	m.Key = f.Fixed32(2)
	m.Name = f.String(3)
	m.UniqueID = f.String(4)
	m.Fields = f.without(1, 2, 3, 4)
	return nil
}

// EntityState is an entity state response (*StateResponse).
type EntityState struct {
	MsgType MessageType
	Key     uint32

	// Fields holds every field other than the key.
	Fields Fields
}

func (m *EntityState) Type() MessageType { return m.MsgType }

func (m *EntityState) Marshal(b []byte) []byte {
	return m.Fields.Marshal(appendKey(b, m.Key))
}

func (m *EntityState) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	m.Key = f.Fixed32(1)
	m.Fields = f.without(1)
	return nil
}

// EntityCommand is an entity command request (*CommandRequest).
type EntityCommand struct {
	MsgType MessageType
	Key     uint32

	// Fields holds every field other than the key.
	Fields Fields
}

func (m *EntityCommand) Type() MessageType { return m.MsgType }

func (m *EntityCommand) Marshal(b []byte) []byte {
	return m.Fields.Marshal(appendKey(b, m.Key))
}

func (m *EntityCommand) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	m.Key = f.Fixed32(1)
	m.Fields = f.without(1)
	return nil
}

// The entity key is always written, zero included, so commands stay addressable.
func appendKey(b []byte, key uint32) []byte {
	b = protowire.AppendTag(b, 1, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, key)
}

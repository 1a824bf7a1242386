package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates TXT records for a device announcement. Empty fields are
// omitted.
func EncodeTXT(info *Info) TXTRecordMap {
	txt := make(TXTRecordMap)
	set := func(k, v string) {
		if v != "" {
			txt[k] = v
		}
	}
	set(TXTKeyFriendlyName, info.FriendlyName)
	set(TXTKeyVersion, info.Version)
	set(TXTKeyMAC, info.MAC)
	set(TXTKeyPlatform, info.Platform)
	set(TXTKeyBoard, info.Board)
	set(TXTKeyNetwork, info.Network)
	set(TXTKeyAPIEncryption, info.APIEncryption)
	set(TXTKeyProjectName, info.ProjectName)
	set(TXTKeyProjectVersion, info.ProjectVersion)
	return txt
}

// DecodeTXT parses the TXT records of an announcement. Every key is
// optional; a malformed MAC address is rejected.
func DecodeTXT(txt TXTRecordMap) (*Info, error) {
	info := &Info{
		FriendlyName:   txt[TXTKeyFriendlyName],
		Version:        txt[TXTKeyVersion],
		Platform:       txt[TXTKeyPlatform],
		Board:          txt[TXTKeyBoard],
		Network:        txt[TXTKeyNetwork],
		APIEncryption:  txt[TXTKeyAPIEncryption],
		ProjectName:    txt[TXTKeyProjectName],
		ProjectVersion: txt[TXTKeyProjectVersion],
	}
	if mac, ok := txt[TXTKeyMAC]; ok {
		mac = strings.ToLower(strings.ReplaceAll(mac, ":", ""))
		if len(mac) != 12 || !isHexString(mac) {
			return nil, fmt.Errorf("%w: mac %q", ErrInvalidTXTRecord, txt[TXTKeyMAC])
		}
		info.MAC = mac
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if k == "" {
			continue
		}
		if !found {
			// Key without value (boolean flag)
			v = ""
		}
		txt[k] = v
	}
	return txt
}

func isHexString(s string) bool {
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

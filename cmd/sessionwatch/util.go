package main

import "encoding/json"

func jsonMarshalCompact(v any) ([]byte, error) {
	return json.Marshal(v)
}

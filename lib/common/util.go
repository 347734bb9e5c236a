package common

import (
	"encoding/json"
	"os"
	"strings"
)

func GetENVValue(key, defaultValue string) (v string) {
	var found bool
	if v, found = os.LookupEnv(key); !found {
		return defaultValue
	}

	return
}

// ParseRedisAddrs parses "name=host:port,name=host:port"; an entry without a
// name is named after its address.
func ParseRedisAddrs(s string) map[string]string {
	addrs := map[string]string{}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if len(field) < 1 {
			continue
		}

		kv := strings.SplitN(field, "=", 2)
		if len(kv) == 2 {
			addrs[kv[0]] = kv[1]
		} else {
			addrs[field] = field
		}
	}

	return addrs
}

func MustMarshalJSON(o interface{}) []byte {
	b, _ := json.Marshal(o)
	return b
}

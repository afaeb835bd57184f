package domain

import "github.com/bytedance/sonic"

func unquote(b []byte) (string, error) {
	var s string
	if err := sonic.ConfigStd.Unmarshal(b, &s); err != nil {
		return "", err
	}
	return s, nil
}

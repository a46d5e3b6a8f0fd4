package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProxyManagerRotation(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:8080", "", "https://10.0.0.2:3128"}, "")
	assert.True(t, pm.HasProxies())
	assert.Equal(t, DefaultUserAgent, pm.GetUserAgent())

	first, err := pm.GetCurrentProxy()
	assert.NoError(t, err)
	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	assert.NotEqual(t, first, second)
	assert.ElementsMatch(t, []string{"http://10.0.0.1:8080", "https://10.0.0.2:3128"}, []string{first, second})
}

func TestProxyManagerWithoutProxies(t *testing.T) {
	pm := NewProxyManager(nil, "candle-stream/1.0")
	assert.False(t, pm.HasProxies())
	assert.Equal(t, "candle-stream/1.0", pm.GetUserAgent())

	p, err := pm.GetCurrentProxy()
	assert.NoError(t, err)
	assert.Empty(t, p)
	pm.RotateProxy()
}

func TestValidateProxy(t *testing.T) {
	assert.True(t, ValidateProxy("127.0.0.1:8080"))
	assert.True(t, ValidateProxy("socks5://127.0.0.1:1080"))
	assert.False(t, ValidateProxy(""))
	assert.False(t, ValidateProxy("ftp://127.0.0.1"))
}

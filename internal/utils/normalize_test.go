package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery_EquivalentPhrasings(t *testing.T) {
	assert.Equal(t, NormalizeQuery("How to reset password?"), NormalizeQuery("Reset password, please"))
	assert.Equal(t, "password reset", NormalizeQuery("How to reset password?"))
}

func TestNormalizeQuery_WordOrderIndependence(t *testing.T) {
	assert.Equal(t, NormalizeQuery("password reset"), NormalizeQuery("reset password"))
}

func TestNormalizeQuery_CaseInsensitive(t *testing.T) {
	assert.Equal(t, NormalizeQuery("reset PASSWORD"), NormalizeQuery("reset password"))
}

func TestNormalizeQuery_Russian(t *testing.T) {
	assert.Equal(t, "пароль сбросить", NormalizeQuery("Как сбросить пароль?"))
}

func TestNormalizeQuery_Idempotent(t *testing.T) {
	once := NormalizeQuery("How to reset my Password, please??")
	twice := NormalizeQuery(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeQuery_EmptyAndStopwordsOnly(t *testing.T) {
	assert.Equal(t, "", NormalizeQuery(""))
	assert.Equal(t, "", NormalizeQuery("please help me"))
}

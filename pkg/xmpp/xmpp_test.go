package xmpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementAttrs(t *testing.T) {
	el := NewElement(QNPhonePayloadType)
	assert.False(t, el.HasAttr(QNPayloadTypeID))
	assert.Equal(t, "", el.Attr(QNPayloadTypeID))

	el.SetAttr(QNPayloadTypeID, "0")
	el.SetAttr(QNPayloadTypeName, "PCMU")
	el.SetAttr(QNPayloadTypeID, "8")

	assert.True(t, el.HasAttr(QNPayloadTypeID))
	assert.Equal(t, "8", el.Attr(QNPayloadTypeID))
	assert.Len(t, el.Attrs, 2)
}

func TestElementMarshalParse(t *testing.T) {
	root := NewElement(QNVideoDescription)
	pt := NewElement(QNPhonePayloadType)
	pt.SetAttr(QNPayloadTypeID, "103")
	pt.SetAttr(QNPayloadTypeName, "ISAC")
	root.AddElement(pt)
	vpt := NewElement(QNVideoPayloadType)
	vpt.SetAttr(QNPayloadTypeID, "97")
	root.AddElement(vpt)
	src := NewElement(QNPhoneSrcID)
	src.SetBodyText("1234")
	root.AddElement(src)

	data, err := root.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, QNVideoDescription, parsed.Name)
	require.Len(t, parsed.Children, 3)

	first := parsed.FirstNamed(QNPhonePayloadType)
	require.NotNil(t, first)
	assert.Equal(t, "103", first.Attr(QNPayloadTypeID))
	assert.Equal(t, "ISAC", first.Attr(QNPayloadTypeName))
	assert.Len(t, first.Attrs, 2, "xmlns declarations must not leak into attributes")

	assert.Len(t, parsed.ElementsNamed(QNVideoPayloadType), 1)
	assert.Nil(t, parsed.FirstNamed(QNVideoSrcID))
	assert.Equal(t, "1234", parsed.FirstNamed(QNPhoneSrcID).BodyText())
}

func TestParseForeignPrefix(t *testing.T) {
	doc := `<v:description xmlns:v="http://www.google.com/session/video" xmlns:p="http://www.google.com/session/phone">
  <p:payload-type id="0" name="PCMU"/>
  <v:payload-type id="97" name="H264" width="320"/>
</v:description>`

	parsed, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, QNVideoDescription, parsed.Name)
	assert.Len(t, parsed.ElementsNamed(QNPhonePayloadType), 1)
	assert.Equal(t, "320", parsed.FirstNamed(QNVideoPayloadType).Attr(QNPayloadTypeWidth))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(""))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Parse([]byte("<a><b></a>"))
	assert.Error(t, err)
}

package session

import (
	"fmt"

	"github.com/arzzra/jingle_phone/pkg/xmpp"
)

// Типы сигнальных сообщений
const (
	stanzaInitiate  = "initiate"
	stanzaAccept    = "accept"
	stanzaReject    = "reject"
	stanzaTerminate = "terminate"
)

// stanza сигнальное сообщение сессии:
//
//	<session xmlns="http://www.google.com/session" type="initiate" id="..." initiator="..." from="..." to="...">
//	  <description xmlns="http://www.google.com/session/phone">...</description>
//	</session>
type stanza struct {
	kind        string
	id          ID
	initiator   string
	from        string
	to          string
	description *xmpp.Element
}

func (st *stanza) marshal() ([]byte, error) {
	el := xmpp.NewElement(xmpp.QNSession)
	el.SetAttr(xmpp.QNSessionType, st.kind)
	el.SetAttr(xmpp.QNSessionID, string(st.id))
	el.SetAttr(xmpp.QNSessionInitiator, st.initiator)
	el.SetAttr(xmpp.QNSessionFrom, st.from)
	el.SetAttr(xmpp.QNSessionTo, st.to)
	if st.description != nil {
		el.AddElement(st.description)
	}
	return el.Marshal()
}

func parseStanza(data []byte) (*stanza, error) {
	el, err := xmpp.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadStanza, err)
	}
	if el.Name != xmpp.QNSession {
		return nil, fmt.Errorf("%w: unexpected root %s", ErrBadStanza, el.Name.Local)
	}

	st := &stanza{
		kind:      el.Attr(xmpp.QNSessionType),
		id:        ID(el.Attr(xmpp.QNSessionID)),
		initiator: el.Attr(xmpp.QNSessionInitiator),
		from:      el.Attr(xmpp.QNSessionFrom),
		to:        el.Attr(xmpp.QNSessionTo),
	}
	if st.id == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrBadStanza)
	}
	if len(el.Children) > 0 {
		st.description = el.Children[0]
	}
	return st, nil
}

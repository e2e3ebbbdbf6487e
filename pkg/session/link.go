package session

// managerPeer доставляет сообщения напрямую в другой Manager
type managerPeer struct {
	target *Manager
}

func (p managerPeer) Deliver(stanza []byte) error {
	return p.target.HandleStanza(stanza)
}

// Link соединяет два менеджера loopback каналом: сообщения одного
// синхронно обрабатываются другим. Используется в тестах и демо.
func Link(a, b *Manager) {
	a.SetPeer(managerPeer{target: b})
	b.SetPeer(managerPeer{target: a})
}

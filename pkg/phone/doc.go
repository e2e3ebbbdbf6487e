// Package phone реализует клиент медиа сессий: реестр звонков, адаптер
// жизненного цикла сигнальных сессий и арбитр фокуса.
//
// # Основные компоненты
//
//   - MediaSessionClient - реестр звонков. Регистрируется в транспорте
//     сессий для типов содержимого phone и video, создает звонки для
//     входящих сессий и отклоняет сессии без общего голосового кодека
//   - Call - группа сессий одного разговора
//   - ChannelManager - канальный уровень: перечень локальных кодеков и
//     включение медиа каналов
//
// # Фокус
//
// Фокус - единственный звонок, медиа каналы которого включены. При смене
// фокуса каналы прежнего звонка выключаются до включения каналов нового,
// поэтому в любой наблюдаемый момент включено не более одного звонка.
//
// # Пример
//
//	transport := session.NewManager(session.DefaultManagerConfig())
//	channels, _ := channel.NewManager(channel.DefaultConfig())
//
//	client, err := phone.NewMediaSessionClient(phone.DefaultConfig("alice@example.com/phone"), transport, channels)
//	if err != nil {
//		return err
//	}
//	if err := client.Register(); err != nil {
//		return err
//	}
//	defer client.Close()
//
//	var incoming []*phone.Call
//	client.OnCallCreate(func(call *phone.Call) {
//		incoming = append(incoming, call)
//	})
//
//	// после обработки входящего initiate
//	for _, call := range incoming {
//		for _, s := range call.Sessions() {
//			_ = call.AcceptSession(s)
//		}
//		_ = client.SetFocus(call)
//	}
//
// # Потокобезопасность
//
// MediaSessionClient и Call не синхронизированы. Все вызовы, включая
// обработку входящих сообщений транспортом, выполняются из одной
// управляющей горутины.
package phone

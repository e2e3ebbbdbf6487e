package session

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// События конечного автомата сессии
const (
	eventSendInitiate     = "send_initiate"
	eventReceiveInitiate  = "receive_initiate"
	eventSendAccept       = "send_accept"
	eventReceiveAccept    = "receive_accept"
	eventSendReject       = "send_reject"
	eventReceiveReject    = "receive_reject"
	eventSendTerminate    = "send_terminate"
	eventReceiveTerminate = "receive_terminate"
	eventDeinit           = "deinit"
)

var stateNames = map[State]string{
	StateInit:              "init",
	StateSentInitiate:      "sent_initiate",
	StateReceivedInitiate:  "received_initiate",
	StateSentAccept:        "sent_accept",
	StateReceivedAccept:    "received_accept",
	StateSentReject:        "sent_reject",
	StateReceivedReject:    "received_reject",
	StateSentTerminate:     "sent_terminate",
	StateReceivedTerminate: "received_terminate",
	StateDeinit:            "deinit",
}

func stateName(s State) string {
	return stateNames[s]
}

// stringToState преобразует строку FSM в State
func stringToState(name string) State {
	for s, n := range stateNames {
		if n == name {
			return s
		}
	}
	return StateInit
}

// newStateMachine создает конечный автомат жизненного цикла сессии.
// onEnter вызывается после каждого успешного перехода.
func newStateMachine(onEnter func(from, to State)) *fsm.FSM {
	active := []string{
		stateName(StateSentInitiate),
		stateName(StateReceivedInitiate),
		stateName(StateSentAccept),
		stateName(StateReceivedAccept),
	}

	all := make([]string, 0, len(stateNames))
	for s, n := range stateNames {
		if s != StateDeinit {
			all = append(all, n)
		}
	}

	return fsm.NewFSM(
		stateName(StateInit),
		fsm.Events{
			// Исходящая сессия
			{Name: eventSendInitiate, Src: []string{stateName(StateInit)}, Dst: stateName(StateSentInitiate)},
			{Name: eventReceiveAccept, Src: []string{stateName(StateSentInitiate)}, Dst: stateName(StateReceivedAccept)},
			{Name: eventReceiveReject, Src: []string{stateName(StateSentInitiate)}, Dst: stateName(StateReceivedReject)},
			// Входящая сессия
			{Name: eventReceiveInitiate, Src: []string{stateName(StateInit)}, Dst: stateName(StateReceivedInitiate)},
			{Name: eventSendAccept, Src: []string{stateName(StateReceivedInitiate)}, Dst: stateName(StateSentAccept)},
			{Name: eventSendReject, Src: []string{stateName(StateReceivedInitiate)}, Dst: stateName(StateSentReject)},
			// Завершение
			{Name: eventSendTerminate, Src: active, Dst: stateName(StateSentTerminate)},
			{Name: eventReceiveTerminate, Src: active, Dst: stateName(StateReceivedTerminate)},
			{Name: eventDeinit, Src: all, Dst: stateName(StateDeinit)},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				if onEnter != nil {
					onEnter(stringToState(e.Src), stringToState(e.Dst))
				}
			},
		},
	)
}

// fire выполняет событие и оборачивает ошибки FSM в ErrInvalidTransition
func fire(machine *fsm.FSM, event string) error {
	if err := machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("%w: %s from %s: %v", ErrInvalidTransition, event, machine.Current(), err)
	}
	return nil
}

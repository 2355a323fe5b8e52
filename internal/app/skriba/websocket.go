package skriba

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/intervju/skriba/internal/app/skriba/api"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/messages"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

var idConnectionMap = make(map[string]map[WsConn]bool)
var connectionIDMap = make(map[WsConn]string)
var mapLock = sync.Mutex{}

type eventChannelFunc func() (<-chan amqp.Delivery, error)

// WsConn is interface for websocket handling
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

type websocketHandler struct {
	data *ServiceData
}

func (h websocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("ws request from %s", r.Host)

	c, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		cmdapp.Log.Error(err)
		return
	}
	go handleConnection(c)
}

// handleConnection reads job IDs sent by the client and subscribes the
// connection to events of the last sent ID
func handleConnection(conn WsConn) {
	defer deleteConnection(conn)
	defer conn.Close()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			cmdapp.Log.Error(err)
			break
		}
		saveConnection(conn, string(message))
	}
	cmdapp.Log.Debugf("handleConnection finish")
}

func deleteConnection(conn WsConn) {
	mapLock.Lock()
	defer mapLock.Unlock()
	deleteConnectionNoSync(conn)
}

func deleteConnectionNoSync(conn WsConn) {
	id, found := connectionIDMap[conn]
	if found {
		conns, found := idConnectionMap[id]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(idConnectionMap, id)
			}
		}
	}
	delete(connectionIDMap, conn)
	cmdapp.Log.Debugf("deleteConnection finish: %d", len(connectionIDMap))
}

func saveConnection(conn WsConn, id string) {
	mapLock.Lock()
	defer mapLock.Unlock()
	deleteConnectionNoSync(conn)
	connectionIDMap[conn] = id
	conns, found := idConnectionMap[id]
	if !found {
		conns = map[WsConn]bool{}
		idConnectionMap[id] = conns
	}
	conns[conn] = true
	cmdapp.Log.Debugf("saveConnection finish: %d", len(connectionIDMap))
}

func getConnections(id string) ([]WsConn, bool) {
	mapLock.Lock()
	defer mapLock.Unlock()
	conns, found := idConnectionMap[id]
	if !found {
		return nil, false
	}
	res := make([]WsConn, 0, len(conns))
	for c := range conns {
		res = append(res, c)
	}
	return res, true
}

func listenQueue(channel <-chan amqp.Delivery, fc chan<- bool) {
	for d := range channel {
		err := processEvent(&d)
		if err != nil {
			cmdapp.Log.Errorf("Can't process message %s\n%s", d.MessageId, string(d.Body))
			cmdapp.Log.Error(err)
		}
	}
	cmdapp.Log.Infof("Stopped listening queue")
	close(fc)
}

func registerQueue(data *ServiceData, quitChan <-chan bool, initialWait time.Duration) {
	wait := initialWait
	for {
		select {
		case <-quitChan:
			cmdapp.Log.Infof("Quit listening queue")
			return
		default:
			fc := make(chan bool)
			cmdapp.Log.Infof("Trying listening queue")
			msgs, err := data.EventChannelFunc()
			if err != nil {
				cmdapp.Log.Error(err)
				wait = wait * 2
				if wait > time.Minute {
					wait = time.Minute
				}
				cmdapp.Log.Infof("Wait before reconnect %d s", wait/time.Second)
				time.Sleep(wait)
				continue
			}
			wait = initialWait
			go listenQueue(msgs, fc)
			<-fc
		}
	}
}

func processEvent(d *amqp.Delivery) error {
	var message messages.QueueMessage
	if err := json.Unmarshal(d.Body, &message); err != nil {
		return errors.Wrap(err, "can't unmarshal event "+string(d.Body))
	}
	conns, found := getConnections(message.ID)
	if !found {
		cmdapp.Log.Debugf("No connections found for %s", message.ID)
		return nil
	}
	event := statusEvent(&message)
	for _, c := range conns {
		cmdapp.LogIf(sendMsg(c, event))
	}
	return nil
}

func statusEvent(message *messages.QueueMessage) *api.StatusEvent {
	res := &api.StatusEvent{ID: message.ID, Error: message.Error}
	if v, ok := messages.TagValue(message.Tags, messages.TagStatus); ok {
		res.Status = v
	}
	if v, ok := messages.TagValue(message.Tags, messages.TagProgress); ok {
		if p, err := strconv.Atoi(v); err == nil {
			res.Progress = int32(p)
		}
	}
	if v, ok := messages.TagValue(message.Tags, messages.TagStep); ok {
		res.Step = v
	}
	if v, ok := messages.TagValue(message.Tags, messages.TagTimestamp); ok {
		res.Timestamp = v
	}
	return res
}

func sendMsg(c WsConn, event *api.StatusEvent) error {
	cmdapp.Log.Debugf("Sending event for %s to websocket", event.ID)
	err := c.WriteJSON(event)
	if err != nil {
		return errors.Wrap(err, "can't write to websocket")
	}
	return nil
}

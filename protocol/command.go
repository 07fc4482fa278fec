package protocol

// Command names a client instruction. The constants below cover the
// common set; any free-form name can be used as well, the string is what
// goes on the wire.
type Command string

const (
	HELLO        Command = "HELLO"
	PING         Command = "PING"
	ECHO         Command = "ECHO"
	QUIT         Command = "QUIT"
	AUTH         Command = "AUTH"
	GET          Command = "GET"
	SET          Command = "SET"
	DEL          Command = "DEL"
	EXPIRE       Command = "EXPIRE"
	INCR         Command = "INCR"
	APPEND       Command = "APPEND"
	LPUSH        Command = "LPUSH"
	RPUSH        Command = "RPUSH"
	LPOP         Command = "LPOP"
	LLEN         Command = "LLEN"
	LRANGE       Command = "LRANGE"
	LTRIM        Command = "LTRIM"
	HSET         Command = "HSET"
	HGET         Command = "HGET"
	HMGET        Command = "HMGET"
	HDEL         Command = "HDEL"
	HLEN         Command = "HLEN"
	HKEYS        Command = "HKEYS"
	HVALS        Command = "HVALS"
	HGETALL      Command = "HGETALL"
	SADD         Command = "SADD"
	SCARD        Command = "SCARD"
	SMEMBERS     Command = "SMEMBERS"
	ZADD         Command = "ZADD"
	ZRANGE       Command = "ZRANGE"
	KEYS         Command = "KEYS"
	FLUSHALL     Command = "FLUSHALL"
	PUBLISH      Command = "PUBLISH"
	SUBSCRIBE    Command = "SUBSCRIBE"
	UNSUBSCRIBE  Command = "UNSUBSCRIBE"
	PSUBSCRIBE   Command = "PSUBSCRIBE"
	PUNSUBSCRIBE Command = "PUNSUBSCRIBE"
	MULTI        Command = "MULTI"
	EXEC         Command = "EXEC"
	DISCARD      Command = "DISCARD"
)

// HasPushResponse reports whether the server answers this command with
// push frames instead of an ordinary response. Such commands do not take
// a slot in the pending tag queue.
func (c Command) HasPushResponse() bool {
	switch c {
	case SUBSCRIBE, UNSUBSCRIBE, PSUBSCRIBE, PUNSUBSCRIBE:
		return true
	default:
		return false
	}
}

package irc

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testClient wraps a raw TCP connection to the test server, in the style
// of the teacher's own irc/z_test.go TestClient harness (net + bufio,
// no IRC library on the test side).
type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialTestServer(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (tc *testClient) send(line string) {
	tc.t.Helper()
	_, err := tc.conn.Write([]byte(line + "\r\n"))
	require.NoError(tc.t, err)
}

func (tc *testClient) readLine() string {
	tc.t.Helper()
	tc.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := tc.r.ReadString('\n')
	require.NoError(tc.t, err)
	return line[:len(line)-2] // strip \r\n
}

func (tc *testClient) close() {
	tc.conn.Close()
}

func startTestServer(t *testing.T, password string) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(password, nil)
	go server.Serve(ln)

	return ln.Addr().String(), func() { server.Stop() }
}

func registerClient(t *testing.T, addr, password, nick string) *testClient {
	t.Helper()
	tc := dialTestServer(t, addr)
	tc.readLine() // password prompt NOTICE
	tc.send("PASS " + password)
	tc.readLine() // password accepted NOTICE
	tc.send("NICK " + nick)
	tc.send("USER " + nick + " 0 * :" + nick)
	tc.readLine() // 001
	tc.readLine() // 375
	tc.readLine() // 376
	return tc
}

func TestWrongPasswordDisconnects(t *testing.T) {
	addr, stop := startTestServer(t, "secret")
	defer stop()

	tc := dialTestServer(t, addr)
	defer tc.close()

	tc.readLine()
	tc.send("PASS wrong")

	line := tc.readLine()
	require.Equal(t, ":irc.localhost 464 * :Incorrect password.", line)

	tc.conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err := tc.conn.Read(buf)
	require.Error(t, err) // connection closed by server
}

func TestFullHandshakeWelcomeBurst(t *testing.T) {
	addr, stop := startTestServer(t, "secret")
	defer stop()

	tc := dialTestServer(t, addr)
	defer tc.close()

	tc.readLine()
	tc.send("PASS secret")
	tc.readLine()
	tc.send("NICK alice")
	tc.send("USER alice 0 * :Alice A")

	require.Equal(t, ":irc.localhost 001 alice :Welcome to the Internet Relay Network alice!alice@localhost", tc.readLine())
	require.Contains(t, tc.readLine(), "375 alice")
	require.Contains(t, tc.readLine(), "376 alice")
}

func TestJoinAndRelayPrivmsg(t *testing.T) {
	addr, stop := startTestServer(t, "secret")
	defer stop()

	alice := registerClient(t, addr, "secret", "alice")
	defer alice.close()
	bob := registerClient(t, addr, "secret", "bob")
	defer bob.close()

	alice.send("JOIN #chat")
	require.Equal(t, ":alice!alice@localhost JOIN #chat", alice.readLine())
	require.Contains(t, alice.readLine(), "331") // no topic
	require.Contains(t, alice.readLine(), "353") // names
	require.Contains(t, alice.readLine(), "366") // end of names

	bob.send("JOIN #chat")
	require.Equal(t, ":bob!bob@localhost JOIN #chat", bob.readLine())
	bob.readLine() // 331
	bob.readLine() // 353
	bob.readLine() // 366

	require.Equal(t, ":bob!bob@localhost JOIN #chat", alice.readLine())

	bob.send("PRIVMSG #chat :hi")
	require.Equal(t, ":bob!bob@localhost PRIVMSG #chat :hi", alice.readLine())
}

func TestInviteOnlyEnforcement(t *testing.T) {
	addr, stop := startTestServer(t, "secret")
	defer stop()

	alice := registerClient(t, addr, "secret", "alice")
	defer alice.close()
	bob := registerClient(t, addr, "secret", "bob")
	defer bob.close()

	alice.send("JOIN #chat")
	alice.readLine()
	alice.readLine()
	alice.readLine()
	alice.readLine()

	alice.send("MODE #chat +i")
	require.Contains(t, alice.readLine(), "MODE #chat +i")

	bob.send("JOIN #chat")
	require.Contains(t, bob.readLine(), "473")

	alice.send("INVITE bob #chat")
	require.Contains(t, alice.readLine(), "341")
	require.Equal(t, ":alice!alice@localhost INVITE bob #chat", bob.readLine())

	bob.send("JOIN #chat")
	require.Equal(t, ":bob!bob@localhost JOIN #chat", bob.readLine())
}

func TestKeyEnforcement(t *testing.T) {
	addr, stop := startTestServer(t, "secret")
	defer stop()

	alice := registerClient(t, addr, "secret", "alice")
	defer alice.close()
	bob := registerClient(t, addr, "secret", "bob")
	defer bob.close()

	alice.send("JOIN #chat")
	alice.readLine()
	alice.readLine()
	alice.readLine()
	alice.readLine()

	alice.send("MODE #chat +k hunter2")
	alice.readLine()

	bob.send("JOIN #chat")
	require.Contains(t, bob.readLine(), "475")

	bob.send("JOIN #chat hunter2")
	require.Equal(t, ":bob!bob@localhost JOIN #chat", bob.readLine())
}

func TestKickByOperator(t *testing.T) {
	addr, stop := startTestServer(t, "secret")
	defer stop()

	alice := registerClient(t, addr, "secret", "alice")
	defer alice.close()
	bob := registerClient(t, addr, "secret", "bob")
	defer bob.close()

	alice.send("JOIN #chat")
	alice.readLine()
	alice.readLine()
	alice.readLine()
	alice.readLine()

	bob.send("JOIN #chat")
	bob.readLine()
	bob.readLine()
	bob.readLine()
	bob.readLine()
	alice.readLine() // bob's join echoed to alice

	alice.send("KICK #chat bob")

	require.Equal(t, ":alice!alice@localhost KICK #chat bob :Kicked by operator", alice.readLine())
	require.Equal(t, ":alice!alice@localhost KICK #chat bob :Kicked by operator", bob.readLine())
}

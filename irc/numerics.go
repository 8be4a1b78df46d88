package irc

// Numeric reply codes from RFC 2812, limited to the subset this server
// actually sends.
const (
	RPL_WELCOME  = 1
	RPL_YOURHOST = 2
	RPL_CREATED  = 3
	RPL_MYINFO   = 4

	RPL_AWAY          = 301
	RPL_USERHOST      = 302
	RPL_UNAWAY        = 305
	RPL_NOWAWAY       = 306
	RPL_WHOISUSER     = 311
	RPL_ENDOFWHO      = 315
	RPL_ENDOFWHOIS    = 318
	RPL_WHOISCHANNELS = 319
	RPL_LISTSTART     = 321
	RPL_LIST          = 322
	RPL_LISTEND       = 323
	RPL_TOPIC         = 332
	RPL_VERSION       = 351
	RPL_WHOREPLY      = 352
	RPL_NAMREPLY      = 353
	RPL_ENDOFNAMES    = 366
	RPL_MOTD          = 372
	RPL_MOTDSTART     = 375
	RPL_ENDOFMOTD     = 376

	ERR_NOSUCHNICK      = 401
	ERR_NOSUCHCHANNEL   = 403
	ERR_UNKNOWNCOMMAND  = 421
	ERR_NONICKNAMEGIVEN = 431
	ERR_NICKNAMEINUSE   = 433
	ERR_NOTONCHANNEL    = 442
	ERR_PASSWDMISMATCH  = 464
)
